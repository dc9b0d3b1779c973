package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/mindwell/internal/client/recorder"
	"github.com/dmitrijs2005/mindwell/internal/client/uploader"
)

// elapsedEvery is how often the recording clock is redrawn.
var elapsedEvery = time.Second

// Record captures from the microphone until Enter (stop and upload) or
// Esc/q (discard).
func (a *App) Record(ctx context.Context) error {
	rec := recorder.New(a.microphone(), a.logger, a.recorderOpts...)
	defer rec.Dispose()

	if err := rec.Start(ctx); err != nil {
		return err
	}
	a.printf("Recording... press Enter to stop, Esc or q to cancel\n")

	stopClock := a.showElapsed(rec)
	key, err := readKey(a.reader)
	stopClock()
	if err != nil {
		rec.Cancel()
		return err
	}

	if key == keyEscape || key == 'q' || key == 'Q' {
		rec.Cancel()
		a.printf("\nRecording discarded.\n")
		return nil
	}

	capture, err := rec.Stop()
	if err != nil {
		return fmt.Errorf("recording failed: %w", err)
	}
	a.printf("\nRecorded %s (%d bytes).\n", clock(capture.DurationSeconds), len(capture.Blob))
	if len(capture.Blob) == 0 {
		a.printf("Nothing was captured, check the record command.\n")
		return nil
	}

	note, err := GetSimpleText(a.reader, "Add a note (optional)", a.out)
	if err != nil {
		return err
	}
	mood, err := GetSimpleText(a.reader, "Mood (optional)", a.out)
	if err != nil {
		return err
	}

	return a.submit(ctx, capture.Blob, uploader.Metadata{
		UserID:          a.config.UserID,
		DurationSeconds: capture.DurationSeconds,
		Text:            note,
		Mood:            mood,
		ContentType:     capture.ContentType,
	})
}

// showElapsed redraws the recording clock until the returned func is called.
func (a *App) showElapsed(rec *recorder.Recorder) func() {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(elapsedEvery)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				a.printf("\r● %s", clock(rec.Duration()))
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

func clock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
