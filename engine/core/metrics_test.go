package core

import (
	"testing"
	"time"
)

func TestMetricsAverage(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(4 * time.Millisecond)
	}
	if have := m.FrameTime(); have != 4 {
		t.Fatalf("Metrics.FrameTime:\nhave %v\nwant 4", have)
	}
	if have := m.Frames(); have != uint64(AVG_COUNT) {
		t.Fatalf("Metrics.Frames:\nhave %v\nwant %v", have, AVG_COUNT)
	}
}

func TestMetricsFPS(t *testing.T) {
	m := NewMetrics()
	// 101 frames of 10ms cross the one second boundary on the last update.
	for i := 0; i < 101; i++ {
		m.Update(10 * time.Millisecond)
	}
	if have := m.FPS(); have != 100 {
		t.Fatalf("Metrics.FPS:\nhave %v\nwant 100", have)
	}
}

func TestClock(t *testing.T) {
	c := NewClock()
	c.Update()
	if c.Elapsed() != 0 {
		t.Fatalf("Clock.Elapsed before Start:\nhave %v\nwant 0", c.Elapsed())
	}
	c.Start()
	time.Sleep(time.Millisecond)
	c.Update()
	if c.Elapsed() <= 0 {
		t.Fatalf("Clock.Elapsed after Start:\nhave %v\nwant > 0", c.Elapsed())
	}
	c.Stop()
	e := c.Elapsed()
	c.Update()
	if c.Elapsed() != e {
		t.Fatalf("Clock.Elapsed after Stop:\nhave %v\nwant %v", c.Elapsed(), e)
	}
}

func TestFailurePolicy(t *testing.T) {
	SetLogLevel(LogLevelError + 10)
	defer SetLogLevel(LogLevelDebug)

	if err := FailurePolicyReport.Fail(ErrPacketFull); err != ErrPacketFull {
		t.Fatalf("FailurePolicyReport.Fail:\nhave %v\nwant %v", err, ErrPacketFull)
	}

	defer func() {
		r := recover()
		if r != ErrOutOfArenaSpace {
			t.Fatalf("FailurePolicyPanic.Fail recover:\nhave %v\nwant %v", r, ErrOutOfArenaSpace)
		}
	}()
	FailurePolicyPanic.Fail(ErrOutOfArenaSpace)
	t.Fatal("FailurePolicyPanic.Fail: did not panic")
}

func TestParseFailurePolicy(t *testing.T) {
	for _, x := range []struct {
		in   string
		want FailurePolicy
		err  bool
	}{
		{"", FailurePolicyReport, false},
		{"report", FailurePolicyReport, false},
		{"panic", FailurePolicyPanic, false},
		{"explode", FailurePolicyReport, true},
	} {
		have, err := ParseFailurePolicy(x.in)
		if (err != nil) != x.err || have != x.want {
			t.Fatalf("ParseFailurePolicy(%q):\nhave %v, %v\nwant %v, err=%v", x.in, have, err, x.want, x.err)
		}
	}
}
