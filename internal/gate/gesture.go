package gate

import "sort"

var gestureSides = []struct {
	name     string
	wrist    string
	shoulder string
}{
	{"left", LandmarkLeftWrist, LandmarkLeftShoulder},
	{"right", LandmarkRightWrist, LandmarkRightShoulder},
}

// DetectGestures flags every run of at least cfg.MinFrames consecutive sampled
// frames in which a tracked person holds either wrist above the same-side
// shoulder by more than cfg.ElevationDelta of their height. The raised arm may
// change within a run; Side records "left", "right" or "both" across the run.
// A gap in frame indices or a frame with both wrists lowered ends a run.
func DetectGestures(tracks []PersonTrack, cfg GestureConfig) []GestureFlag {
	minFrames := cfg.MinFrames
	if minFrames < 1 {
		minFrames = 1
	}

	var flags []GestureFlag
	for _, track := range tracks {
		frames := make([]PoseFrame, len(track.Frames))
		copy(frames, track.Frames)
		sort.SliceStable(frames, func(i, j int) bool { return frames[i].Index < frames[j].Index })

		var first, last, n int
		var left, right bool
		flush := func() {
			if n >= minFrames {
				flags = append(flags, GestureFlag{
					TrackID:    track.TrackID,
					Side:       sideName(left, right),
					FirstFrame: first,
					LastFrame:  last,
					Frames:     n,
				})
			}
			n = 0
			left, right = false, false
		}

		for _, f := range frames {
			if n > 0 && f.Index == last {
				continue
			}
			l := wristRaised(f, gestureSides[0].wrist, gestureSides[0].shoulder, cfg)
			r := wristRaised(f, gestureSides[1].wrist, gestureSides[1].shoulder, cfg)
			if !l && !r {
				flush()
				continue
			}
			if n > 0 && f.Index != last+1 {
				flush()
			}
			if n == 0 {
				first = f.Index
			}
			last = f.Index
			left = left || l
			right = right || r
			n++
		}
		flush()
	}
	return flags
}

func sideName(left, right bool) string {
	switch {
	case left && right:
		return "both"
	case left:
		return gestureSides[0].name
	default:
		return gestureSides[1].name
	}
}

// wristRaised compares landmark heights normalized by the person's bounding
// box. Smaller y is higher in the frame.
func wristRaised(f PoseFrame, wristName, shoulderName string, cfg GestureConfig) bool {
	wrist, ok := f.Landmarks[wristName]
	if !ok || wrist.Confidence < cfg.MinLandmarkConfidence {
		return false
	}
	shoulder, ok := f.Landmarks[shoulderName]
	if !ok || shoulder.Confidence < cfg.MinLandmarkConfidence {
		return false
	}
	height := f.Bottom - f.Top
	if height <= 0 {
		height = 1
	}
	return (shoulder.Y-wrist.Y)/height > cfg.ElevationDelta
}
