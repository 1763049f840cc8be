package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"worker-shorts/pkg/videogen"
)

// fakeMedia simulates re-encoding by bookkeeping durations per output
// path. Each operation can be forced to fail by name.
type fakeMedia struct {
	durations  map[string]time.Duration
	fail       map[string]error
	calls      []string
	lastConcat []string
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{
		durations: make(map[string]time.Duration),
		fail:      make(map[string]error),
	}
}

func (f *fakeMedia) record(op string) error {
	f.calls = append(f.calls, op)
	return f.fail[op]
}

func (f *fakeMedia) called(op string) bool {
	for _, c := range f.calls {
		if c == op {
			return true
		}
	}
	return false
}

func (f *fakeMedia) ProbeDuration(_ context.Context, path string) (time.Duration, error) {
	if err := f.record("probe"); err != nil {
		return 0, err
	}
	d, ok := f.durations[path]
	if !ok {
		return 0, fmt.Errorf("no media at %s", path)
	}
	return d, nil
}

func (f *fakeMedia) Trim(_ context.Context, in, out string, target time.Duration) error {
	if err := f.record("trim"); err != nil {
		return err
	}
	f.durations[out] = target
	return nil
}

func (f *fakeMedia) FreezeExtend(_ context.Context, in, out string, target time.Duration) error {
	if err := f.record("freeze"); err != nil {
		return err
	}
	f.durations[out] = target
	return nil
}

func (f *fakeMedia) LoopExtend(_ context.Context, in, out string, target time.Duration) error {
	if err := f.record("loop"); err != nil {
		return err
	}
	f.durations[out] = target
	return nil
}

func (f *fakeMedia) ExtractLastFrame(_ context.Context, in, outImage string) error {
	if err := f.record("lastframe"); err != nil {
		return err
	}
	f.durations[outImage] = 0
	return nil
}

func (f *fakeMedia) StillClip(_ context.Context, image, out string, d time.Duration) error {
	if err := f.record("still"); err != nil {
		return err
	}
	f.durations[out] = d
	return nil
}

func (f *fakeMedia) KenBurnsClip(_ context.Context, image, out string, d time.Duration) error {
	if err := f.record("kenburns"); err != nil {
		return err
	}
	f.durations[out] = d
	return nil
}

func (f *fakeMedia) ReplaceAudio(_ context.Context, video, audio, out string) error {
	if err := f.record("replaceaudio"); err != nil {
		return err
	}
	f.durations[out] = f.durations[video]
	return nil
}

func (f *fakeMedia) Concat(_ context.Context, inputs []string, out string) error {
	if err := f.record("concat"); err != nil {
		return err
	}
	var total time.Duration
	for _, in := range inputs {
		total += f.durations[in]
	}
	f.durations[out] = total
	f.lastConcat = append([]string(nil), inputs...)
	return nil
}

func (f *fakeMedia) OverlayNarration(_ context.Context, video, narration, out string, limit time.Duration) error {
	if err := f.record("overlay"); err != nil {
		return err
	}
	d := f.durations[video]
	if d > limit {
		d = limit
	}
	f.durations[out] = d
	return nil
}

// fakeStore keeps objects in memory and hands out sequential URLs.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	n       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) Save(_ context.Context, data []byte, prefix, ext, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	url := fmt.Sprintf("%s/obj-%d%s", prefix, s.n, ext)
	s.objects[url] = data
	return url, nil
}

func (s *fakeStore) SaveFile(_ context.Context, localPath, objectName, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectName] = []byte(localPath)
	return objectName, nil
}

func (s *fakeStore) Fetch(_ context.Context, url string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[url]
	if !ok {
		return nil, fmt.Errorf("no object at %s", url)
	}
	return data, nil
}

func (s *fakeStore) FetchToFile(_ context.Context, url, _ string) error {
	_, err := s.Fetch(context.Background(), url)
	return err
}

// fakeProvider is a scriptable vendor: polls walk through the configured
// result sequence per job id.
type fakeProvider struct {
	name        string
	min, max    float64
	delay       time.Duration
	submitErr   map[int]error
	pollResults map[string][]videogen.PollResult
	pollErrs    map[string]error
	submits     int
	polls       map[string]int
}

func newFakeProvider(name string) *fakeProvider {
	return &fakeProvider{
		name:        name,
		min:         4,
		max:         10,
		submitErr:   make(map[int]error),
		pollResults: make(map[string][]videogen.PollResult),
		pollErrs:    make(map[string]error),
		polls:       make(map[string]int),
	}
}

func (p *fakeProvider) Name() string                { return p.name }
func (p *fakeProvider) Limits() (float64, float64)  { return p.min, p.max }
func (p *fakeProvider) RequestDelay() time.Duration { return p.delay }

func (p *fakeProvider) Submit(_ context.Context, _ videogen.SubmitRequest) (string, error) {
	idx := p.submits
	p.submits++
	if err := p.submitErr[idx]; err != nil {
		return "", err
	}
	return fmt.Sprintf("remote-%d", idx), nil
}

func (p *fakeProvider) Poll(_ context.Context, jobID string) (videogen.PollResult, error) {
	if err := p.pollErrs[jobID]; err != nil {
		return videogen.PollResult{}, err
	}
	seq := p.pollResults[jobID]
	if len(seq) == 0 {
		return videogen.PollResult{Status: videogen.StatusPending}, nil
	}
	i := p.polls[jobID]
	if i >= len(seq) {
		i = len(seq) - 1
	}
	p.polls[jobID]++
	return seq[i], nil
}

func (p *fakeProvider) Download(_ context.Context, videoURL string) ([]byte, error) {
	return []byte("video:" + videoURL), nil
}
