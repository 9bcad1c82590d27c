package gate_test

import (
	"testing"

	"modgate/internal/gate"
	"modgate/internal/testutil"
)

func TestDetectGestures(t *testing.T) {
	cfg := gate.DefaultPolicy().Gesture

	t.Run("sustained raise is flagged", func(t *testing.T) {
		flags := gate.DetectGestures([]gate.PersonTrack{testutil.RaisedHandTrack("p1", 3)}, cfg)
		if len(flags) != 1 {
			t.Fatalf("DetectGestures() = %v, want one flag", flags)
		}
		f := flags[0]
		if f.TrackID != "p1" || f.Side != "right" || f.FirstFrame != 0 || f.LastFrame != 2 || f.Frames != 3 {
			t.Errorf("DetectGestures() flag = %+v", f)
		}
	})

	t.Run("single frame is not flagged", func(t *testing.T) {
		flags := gate.DetectGestures([]gate.PersonTrack{testutil.RaisedHandTrack("p1", 1)}, cfg)
		if len(flags) != 0 {
			t.Errorf("DetectGestures() = %v, want none", flags)
		}
	})

	t.Run("resting hands are not flagged", func(t *testing.T) {
		flags := gate.DetectGestures([]gate.PersonTrack{testutil.RestingTrack("p1", 10)}, cfg)
		if len(flags) != 0 {
			t.Errorf("DetectGestures() = %v, want none", flags)
		}
	})

	t.Run("gap in frames breaks the run", func(t *testing.T) {
		track := testutil.RaisedHandTrack("p1", 4)
		track.Frames[2].Index = 10
		track.Frames[3].Index = 11
		flags := gate.DetectGestures([]gate.PersonTrack{track}, cfg)
		if len(flags) != 0 {
			t.Errorf("DetectGestures() = %v, want none", flags)
		}
	})

	t.Run("runs are per person", func(t *testing.T) {
		a := testutil.RaisedHandTrack("a", 2)
		b := testutil.RaisedHandTrack("b", 2)
		flags := gate.DetectGestures([]gate.PersonTrack{a, b}, cfg)
		if len(flags) != 0 {
			t.Errorf("DetectGestures() = %v, want none", flags)
		}
	})

	t.Run("unordered frames are sorted", func(t *testing.T) {
		track := testutil.RaisedHandTrack("p1", 3)
		track.Frames[0], track.Frames[2] = track.Frames[2], track.Frames[0]
		flags := gate.DetectGestures([]gate.PersonTrack{track}, cfg)
		if len(flags) != 1 {
			t.Errorf("DetectGestures() = %v, want one flag", flags)
		}
	})

	t.Run("low confidence landmarks are ignored", func(t *testing.T) {
		track := testutil.RaisedHandTrack("p1", 5)
		for i := range track.Frames {
			lm := track.Frames[i].Landmarks[gate.LandmarkRightWrist]
			lm.Confidence = 0.2
			track.Frames[i].Landmarks[gate.LandmarkRightWrist] = lm
		}
		flags := gate.DetectGestures([]gate.PersonTrack{track}, cfg)
		if len(flags) != 0 {
			t.Errorf("DetectGestures() = %v, want none", flags)
		}
	})

	t.Run("switching arms keeps the run going", func(t *testing.T) {
		track := testutil.RestingTrack("p1", 3)
		raise := func(frame int, wrist string) {
			lm := track.Frames[frame].Landmarks[wrist]
			lm.Y = 0.15
			track.Frames[frame].Landmarks[wrist] = lm
		}
		raise(0, gate.LandmarkLeftWrist)
		raise(1, gate.LandmarkLeftWrist)
		raise(1, gate.LandmarkRightWrist)
		raise(2, gate.LandmarkRightWrist)

		flags := gate.DetectGestures([]gate.PersonTrack{track}, cfg)
		if len(flags) != 1 {
			t.Fatalf("DetectGestures() = %v, want one flag", flags)
		}
		f := flags[0]
		if f.Side != "both" || f.FirstFrame != 0 || f.LastFrame != 2 || f.Frames != 3 {
			t.Errorf("DetectGestures() flag = %+v", f)
		}
		if got, want := f.String(), "track p1 both wrists, frames 0-2"; got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	})

	t.Run("lowered wrist ends the run", func(t *testing.T) {
		track := testutil.RaisedHandTrack("p1", 5)
		lm := track.Frames[2].Landmarks[gate.LandmarkRightWrist]
		lm.Y = 0.8
		track.Frames[2].Landmarks[gate.LandmarkRightWrist] = lm
		flags := gate.DetectGestures([]gate.PersonTrack{track}, cfg)
		if len(flags) != 0 {
			t.Errorf("DetectGestures() = %v, want none", flags)
		}
	})
}
