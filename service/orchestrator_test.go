package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"worker-shorts/constant"
	"worker-shorts/entities"
	"worker-shorts/pkg/videogen"
)

func testOrchestrator(p *fakeProvider) (*Orchestrator, *fakeStore) {
	store := newFakeStore()
	o := NewOrchestrator(videogen.NewRegistry(p), store)
	o.sleep = func(time.Duration) {}
	return o, store
}

func testRequests(n int) []ClipRequest {
	reqs := make([]ClipRequest, n)
	for i := range reqs {
		reqs[i] = ClipRequest{
			Section: ScriptSection{Text: "section", DurationSeconds: 8},
			Prompt:  "prompt",
		}
	}
	return reqs
}

func TestRequestAllPartialSubmitFailure(t *testing.T) {
	p := newFakeProvider("veo3")
	p.submitErr[1] = errors.New("quota exceeded")
	o, _ := testOrchestrator(p)

	clips := o.RequestAll(context.Background(), uuid.New(), testRequests(3), "veo3", "veo-3", "9:16")
	if len(clips) != 3 {
		t.Fatalf("expected 3 clips, got %d", len(clips))
	}
	if clips[0].Status == constant.ClipStatusFailed || clips[2].Status == constant.ClipStatusFailed {
		t.Error("a single submit failure poisoned sibling clips")
	}
	if clips[1].Status != constant.ClipStatusFailed {
		t.Errorf("clip 1 status = %v, want FAILED", clips[1].Status)
	}
	if clips[1].ErrorMessage == nil {
		t.Error("failed clip has no error message")
	}
	if clips[0].ProviderJobId == nil || clips[2].ProviderJobId == nil {
		t.Fatal("successful submits did not record provider job ids")
	}
}

func TestRequestAllThrottlesSubmits(t *testing.T) {
	p := newFakeProvider("veo3")
	p.delay = 3 * time.Second
	store := newFakeStore()
	o := NewOrchestrator(videogen.NewRegistry(p), store)

	var slept []time.Duration
	o.sleep = func(d time.Duration) { slept = append(slept, d) }

	o.RequestAll(context.Background(), uuid.New(), testRequests(3), "veo3", "veo-3", "9:16")
	if len(slept) != 2 {
		t.Fatalf("expected 2 inter-submit delays for 3 clips, got %d", len(slept))
	}
	for _, d := range slept {
		if d != 3*time.Second {
			t.Errorf("delay = %v, want 3s", d)
		}
	}
}

func TestRequestAllUnknownProvider(t *testing.T) {
	o, _ := testOrchestrator(newFakeProvider("veo3"))

	clips := o.RequestAll(context.Background(), uuid.New(), testRequests(2), "nope", "", "9:16")
	for _, clip := range clips {
		if clip.Status != constant.ClipStatusFailed {
			t.Errorf("clip %d status = %v, want FAILED", clip.ClipIndex, clip.Status)
		}
	}
}

func TestPollOnceOutOfOrderCompletion(t *testing.T) {
	p := newFakeProvider("veo3")
	o, store := testOrchestrator(p)

	clips := o.RequestAll(context.Background(), uuid.New(), testRequests(2), "veo3", "veo-3", "9:16")

	// the second clip finishes before the first
	p.pollResults["remote-0"] = []videogen.PollResult{
		{Status: videogen.StatusProcessing},
		{Status: videogen.StatusCompleted, VideoURL: "https://vendor/a.mp4"},
	}
	p.pollResults["remote-1"] = []videogen.PollResult{
		{Status: videogen.StatusCompleted, VideoURL: "https://vendor/b.mp4"},
	}

	if settled := o.PollOnce(context.Background(), clips); settled {
		t.Fatal("settled after first tick with clip 0 still processing")
	}
	if clips[1].Status != constant.ClipStatusCompleted {
		t.Errorf("clip 1 status = %v, want COMPLETED", clips[1].Status)
	}
	if clips[0].Status != constant.ClipStatusProcessing {
		t.Errorf("clip 0 status = %v, want PROCESSING", clips[0].Status)
	}

	if settled := o.PollOnce(context.Background(), clips); !settled {
		t.Fatal("expected all clips settled after second tick")
	}
	for _, clip := range clips {
		if clip.VideoURL == nil {
			t.Fatalf("clip %d completed without a stored video url", clip.ClipIndex)
		}
		if _, err := store.Fetch(context.Background(), *clip.VideoURL); err != nil {
			t.Errorf("clip %d video not in durable storage: %v", clip.ClipIndex, err)
		}
	}
}

func TestPollOnceSkipsTerminalClips(t *testing.T) {
	p := newFakeProvider("veo3")
	o, _ := testOrchestrator(p)

	clips := o.RequestAll(context.Background(), uuid.New(), testRequests(1), "veo3", "veo-3", "9:16")
	p.pollResults["remote-0"] = []videogen.PollResult{
		{Status: videogen.StatusCompleted, VideoURL: "https://vendor/a.mp4"},
	}

	o.PollOnce(context.Background(), clips)
	firstURL := *clips[0].VideoURL

	// repeated ticks must not re-download or touch completed clips
	o.PollOnce(context.Background(), clips)
	o.PollOnce(context.Background(), clips)
	if *clips[0].VideoURL != firstURL {
		t.Error("completed clip was re-persisted on a later tick")
	}
	if got := p.polls["remote-0"]; got != 1 {
		t.Errorf("vendor polled %d times for a terminal clip, want 1", got)
	}
}

func TestPollOnceTransientErrorIsNotTerminal(t *testing.T) {
	p := newFakeProvider("veo3")
	o, _ := testOrchestrator(p)

	clips := o.RequestAll(context.Background(), uuid.New(), testRequests(1), "veo3", "veo-3", "9:16")
	p.pollErrs["remote-0"] = errors.New("network timeout")

	if settled := o.PollOnce(context.Background(), clips); settled {
		t.Fatal("transient poll error must leave the clip unsettled")
	}
	if clips[0].Status.IsTerminal() {
		t.Errorf("clip status = %v after transient error, want non-terminal", clips[0].Status)
	}

	// next tick succeeds
	delete(p.pollErrs, "remote-0")
	p.pollResults["remote-0"] = []videogen.PollResult{
		{Status: videogen.StatusCompleted, VideoURL: "https://vendor/a.mp4"},
	}
	if settled := o.PollOnce(context.Background(), clips); !settled {
		t.Fatal("expected clip settled once the vendor recovered")
	}
}

func TestPollOnceVendorFailureIsTerminal(t *testing.T) {
	p := newFakeProvider("veo3")
	o, _ := testOrchestrator(p)

	clips := o.RequestAll(context.Background(), uuid.New(), testRequests(1), "veo3", "veo-3", "9:16")
	p.pollResults["remote-0"] = []videogen.PollResult{
		{Status: videogen.StatusFailed, Error: "content policy violation"},
	}

	if settled := o.PollOnce(context.Background(), clips); !settled {
		t.Fatal("vendor-reported failure must settle the clip")
	}
	if clips[0].Status != constant.ClipStatusFailed {
		t.Errorf("clip status = %v, want FAILED", clips[0].Status)
	}
	if clips[0].ErrorMessage == nil {
		t.Error("failed clip carries no error message")
	}
}

func TestCountCompleted(t *testing.T) {
	clips := []*entities.Clip{
		{Status: constant.ClipStatusCompleted},
		{Status: constant.ClipStatusFailed},
		{Status: constant.ClipStatusAdjusted},
		{Status: constant.ClipStatusProcessing},
	}
	completed, total := CountCompleted(clips)
	if completed != 2 || total != 4 {
		t.Errorf("CountCompleted() = (%d, %d), want (2, 4)", completed, total)
	}
}
