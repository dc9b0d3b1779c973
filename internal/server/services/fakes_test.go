package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/mindwell/internal/common"
	"github.com/dmitrijs2005/mindwell/internal/dbx"
	"github.com/dmitrijs2005/mindwell/internal/logging"
	"github.com/dmitrijs2005/mindwell/internal/server/models"
	"github.com/dmitrijs2005/mindwell/internal/server/repositories/checkins"
	"github.com/dmitrijs2005/mindwell/internal/server/repositories/jobs"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// -------- repositories --------

type fakeJobs struct {
	mu         sync.Mutex
	jobs       map[string]*models.Job
	createErr  error
	advanceErr error
	writes     int

	// afterGet runs once a row has been read, before it is returned.
	afterGet func(id string)
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: map[string]*models.Job{}}
}

func (f *fakeJobs) put(j *models.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *j
	f.jobs[j.ID] = &cp
}

func (f *fakeJobs) get(id string) *models.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil
	}
	cp := *j
	return &cp
}

func (f *fakeJobs) Create(ctx context.Context, job *models.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.writes++
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	cp := *job
	f.jobs[job.ID] = &cp
	return nil
}

func (f *fakeJobs) GetByID(ctx context.Context, id string) (*models.Job, error) {
	j := f.get(id)
	if j == nil {
		return nil, common.ErrorNotFound
	}
	if f.afterGet != nil {
		f.afterGet(id)
	}
	return j, nil
}

func (f *fakeJobs) mutate(id string, fn func(j *models.Job)) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok || j.Status.IsTerminal() {
		return nil, common.ErrJobFinalized
	}
	f.writes++
	fn(j)
	j.UpdatedAt = time.Now()
	cp := *j
	return &cp, nil
}

func (f *fakeJobs) Advance(ctx context.Context, id string, status common.JobStatus, stage string, progress int) (*models.Job, error) {
	if f.advanceErr != nil {
		return nil, f.advanceErr
	}
	return f.mutate(id, func(j *models.Job) {
		j.Status = status
		j.Stage = stage
		if progress > j.Progress {
			j.Progress = progress
		}
	})
}

func (f *fakeJobs) Complete(ctx context.Context, id string, resultEntryID int64) (*models.Job, error) {
	return f.mutate(id, func(j *models.Job) {
		j.Status = common.StatusCompleted
		j.Stage = StageCompleted
		j.Progress = 100
		j.ResultEntryID = &resultEntryID
		j.ErrorMessage = nil
		now := time.Now()
		j.FinishedAt = &now
	})
}

func (f *fakeJobs) Fail(ctx context.Context, id string, message string) (*models.Job, error) {
	return f.mutate(id, func(j *models.Job) {
		j.Status = common.StatusError
		j.Stage = StageError
		j.ErrorMessage = &message
		j.ResultEntryID = nil
		now := time.Now()
		j.FinishedAt = &now
	})
}

func (f *fakeJobs) FailStale(ctx context.Context, before time.Time, message string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, j := range f.jobs {
		if !j.Status.IsTerminal() && j.UpdatedAt.Before(before) {
			msg := message
			j.Status = common.StatusError
			j.Stage = StageError
			j.ErrorMessage = &msg
			now := time.Now()
			j.FinishedAt = &now
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeJobs) DeleteFinishedBefore(ctx context.Context, before time.Time) ([]jobs.Purged, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var purged []jobs.Purged
	for id, j := range f.jobs {
		if j.Status.IsTerminal() && j.FinishedAt != nil && j.FinishedAt.Before(before) {
			delete(f.jobs, id)
			purged = append(purged, jobs.Purged{ID: id, Status: j.Status, AudioURL: j.AudioURL})
		}
	}
	sort.Slice(purged, func(a, b int) bool { return purged[a].ID < purged[b].ID })
	return purged, nil
}

type fakeCheckIns struct {
	mu        sync.Mutex
	items     []*models.CheckIn
	createErr error
	lastLimit int
}

func (f *fakeCheckIns) Create(ctx context.Context, c *models.CheckIn) (*models.CheckIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	c.ID = int64(len(f.items) + 1)
	c.CreatedAt = time.Now()
	cp := *c
	f.items = append(f.items, &cp)
	return c, nil
}

func (f *fakeCheckIns) GetByID(ctx context.Context, id int64) (*models.CheckIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.items {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeCheckIns) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.CheckIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	out := []*models.CheckIn{}
	for i := len(f.items) - 1; i >= 0; i-- {
		if f.items[i].UserID == userID {
			cp := *f.items[i]
			out = append(out, &cp)
		}
	}
	if offset >= len(out) {
		return []*models.CheckIn{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCheckIns) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

type fakeRepoMgr struct {
	jobs     *fakeJobs
	checkIns *fakeCheckIns
}

func (m *fakeRepoMgr) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoMgr) Jobs(dbx.DBTX) jobs.Repository                { return m.jobs }
func (m *fakeRepoMgr) CheckIns(dbx.DBTX) checkins.Repository        { return m.checkIns }

// -------- storage --------

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	deleted []string
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (s *memStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if s.putErr != nil {
		return s.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = b
	return nil
}

func (s *memStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

type presigningStore struct {
	*memStore
}

func (s presigningStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://s3.example/" + key + "?ttl=" + ttl.String(), nil
}

// -------- providers --------

type fakeTranscriber struct {
	mu    sync.Mutex
	calls int
	got   []byte
	fn    func(ctx context.Context) (string, error)
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio io.Reader, filename, contentType string) (string, error) {
	b, _ := io.ReadAll(audio)
	f.mu.Lock()
	f.calls++
	f.got = b
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(ctx)
	}
	return "hoje eu me senti tranquilo", nil
}

type fakeAnalyzer struct {
	sentimentErr error
	categoryErr  error
	titleErr     error
}

func (f *fakeAnalyzer) AnalyzeSentiment(ctx context.Context, transcript string) (*models.Sentiment, error) {
	if f.sentimentErr != nil {
		return nil, f.sentimentErr
	}
	return &models.Sentiment{Label: models.SentimentPositive, Score: 0.6, Emotions: []string{"calm"}}, nil
}

func (f *fakeAnalyzer) Categorize(ctx context.Context, transcript string) (string, error) {
	if f.categoryErr != nil {
		return "", f.categoryErr
	}
	return "self-care", nil
}

func (f *fakeAnalyzer) GenerateTitle(ctx context.Context, transcript string) (string, error) {
	if f.titleErr != nil {
		return "", f.titleErr
	}
	return "Um dia tranquilo", nil
}

// -------- status observers --------

// recordingCache captures every snapshot the notifier publishes.
type recordingCache struct {
	mu      sync.Mutex
	views   []models.JobView
	getErr  error
	gets    int
	evicted []string
}

func (c *recordingCache) Get(ctx context.Context, jobID string) (*models.JobView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return nil, c.getErr
	}
	for i := len(c.views) - 1; i >= 0; i-- {
		if c.views[i].JobID == jobID {
			v := c.views[i]
			return &v, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (c *recordingCache) Set(ctx context.Context, v models.JobView) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views = append(c.views, v)
	return nil
}

func (c *recordingCache) Fill(ctx context.Context, v models.JobView) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, old := range c.views {
		if old.JobID == v.JobID {
			return nil
		}
	}
	c.views = append(c.views, v)
	return nil
}

func (c *recordingCache) Delete(ctx context.Context, jobID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evicted = append(c.evicted, jobID)
	kept := c.views[:0]
	for _, v := range c.views {
		if v.JobID != jobID {
			kept = append(kept, v)
		}
	}
	c.views = kept
	return nil
}

func (c *recordingCache) history(jobID string) []models.JobView {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.JobView
	for _, v := range c.views {
		if v.JobID == jobID {
			out = append(out, v)
		}
	}
	return out
}

type fakeDispatcher struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, jobID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, jobID)
	return d.err
}

// -------- helpers --------

func openTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

type env struct {
	db          *sql.DB
	rm          *fakeRepoMgr
	store       *memStore
	transcriber *fakeTranscriber
	analyzer    *fakeAnalyzer
	cache       *recordingCache
	notifier    *Notifier
	pipeline    *Pipeline
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		db:          openTxDB(t),
		rm:          &fakeRepoMgr{jobs: newFakeJobs(), checkIns: &fakeCheckIns{}},
		store:       newMemStore(),
		transcriber: &fakeTranscriber{},
		analyzer:    &fakeAnalyzer{},
		cache:       &recordingCache{},
	}
	e.notifier = NewNotifier(e.cache, nil, logging.NewNop())
	e.pipeline = NewPipeline(e.db, e.rm, e.store, e.transcriber, e.analyzer, e.notifier, logging.NewNop(), time.Minute)
	return e
}

// seedJob stores a pending job, with audio when audio is non-nil.
func (e *env) seedJob(id string, audio []byte, text string) *models.Job {
	j := &models.Job{
		ID: id, UserID: 7, Text: text, DurationSeconds: 12,
		Status: common.StatusPending, Stage: StageUploaded, UpdatedAt: time.Now(),
	}
	if audio != nil {
		j.AudioURL = "users/2025/3/9/" + id + ".webm"
		j.AudioType = "audio/webm"
		e.store.objects[j.AudioURL] = audio
	}
	e.rm.jobs.put(j)
	return j
}

var errBoom = errors.New("boom")
