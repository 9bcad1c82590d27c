package testutil

import (
	"context"
	"fmt"
	"sync"

	"modgate/internal/gate"
)

// TestCDNBaseURL prefixes the playback and thumbnail URLs of RecordingDelivery.
const TestCDNBaseURL = "https://cdn.example.test"

// RecordingDelivery is a DeliveryNetwork that records asset creation and
// plays back scripted failures and poll statuses. Polls report ready once
// the script runs out. Safe for concurrent use.
type RecordingDelivery struct {
	mu         sync.Mutex
	createErrs []error
	statuses   []gate.AssetStatus
	pollErrs   []error
	sources    []string
	polls      int
}

// Compile-time check that RecordingDelivery implements gate.DeliveryNetwork interface
var _ gate.DeliveryNetwork = (*RecordingDelivery)(nil)

func NewRecordingDelivery() *RecordingDelivery {
	return &RecordingDelivery{}
}

// FailCreates scripts errors for successive CreateAsset calls.
func (d *RecordingDelivery) FailCreates(errs ...error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.createErrs = append(d.createErrs, errs...)
}

// ScriptStatuses scripts the results of successive PollStatus calls.
func (d *RecordingDelivery) ScriptStatuses(statuses ...gate.AssetStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.statuses = append(d.statuses, statuses...)
}

// FailPolls scripts errors for successive PollStatus calls. They are
// returned before any scripted status.
func (d *RecordingDelivery) FailPolls(errs ...error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pollErrs = append(d.pollErrs, errs...)
}

func (d *RecordingDelivery) CreateAsset(ctx context.Context, sourceURI, title string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.createErrs) > 0 {
		err := d.createErrs[0]
		d.createErrs = d.createErrs[1:]
		return "", err
	}
	d.sources = append(d.sources, sourceURI)
	return fmt.Sprintf("asset-%d", len(d.sources)), nil
}

func (d *RecordingDelivery) PollStatus(ctx context.Context, assetID string) (gate.AssetStatus, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.polls++
	if len(d.pollErrs) > 0 {
		err := d.pollErrs[0]
		d.pollErrs = d.pollErrs[1:]
		return "", err
	}
	if len(d.statuses) > 0 {
		status := d.statuses[0]
		d.statuses = d.statuses[1:]
		return status, nil
	}
	return gate.AssetReady, nil
}

func (d *RecordingDelivery) PlaybackURL(assetID string) string {
	return TestCDNBaseURL + "/" + assetID + "/playlist.m3u8"
}

func (d *RecordingDelivery) ThumbnailURL(assetID string) string {
	return TestCDNBaseURL + "/" + assetID + "/thumbnail.jpg"
}

// Creates returns how many assets were created.
func (d *RecordingDelivery) Creates() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sources)
}

// Sources returns the source URI of every created asset, in order.
func (d *RecordingDelivery) Sources() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.sources...)
}

// Polls returns how many status polls were made.
func (d *RecordingDelivery) Polls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.polls
}
