package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/mindwell/internal/client/models"
	"github.com/dmitrijs2005/mindwell/internal/common"
)

const historyLimit = 20

// runPlayer is a test seam for launching the audio player.
var runPlayer = func(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// History lists locally remembered submissions.
func (a *App) History(ctx context.Context) error {
	subs, err := a.history.List(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		a.printf("No check-ins submitted from this device yet.\n")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOB\tSUBMITTED\tAUDIO\tSTATUS\tRESULT")
	for _, s := range subs {
		audio := "-"
		if s.HasAudio {
			audio = clock(s.DurationSeconds)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.JobID, s.CreatedAt.Local().Format("2006-01-02 15:04"), audio, submissionStatus(s), submissionResult(s))
	}
	return w.Flush()
}

func submissionStatus(s *models.Submission) string {
	if s.Status.IsTerminal() {
		return string(s.Status)
	}
	return fmt.Sprintf("%s %d%%", s.Status, s.Progress)
}

func submissionResult(s *models.Submission) string {
	switch {
	case s.ResultID != nil:
		return fmt.Sprintf("#%d", *s.ResultID)
	case s.ErrorMessage != nil:
		return *s.ErrorMessage
	}
	return ""
}

// List shows the user's finished check-ins from the server.
func (a *App) List(ctx context.Context) error {
	if a.config.UserID == 0 {
		a.printf("Set a user id (-u) to list check-ins.\n")
		return nil
	}
	list, err := a.api.ListCheckIns(ctx, a.config.UserID, historyLimit, 0)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		a.printf("No check-ins yet.\n")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tSENTIMENT\tCATEGORY\tTITLE")
	for _, c := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			c.ID, c.CreatedAt.Local().Format("2006-01-02 15:04"), c.Sentiment, c.Category, c.Title)
	}
	return w.Flush()
}

// Show prints one finished check-in.
func (a *App) Show(ctx context.Context, id int64) error {
	c, err := a.api.CheckIn(ctx, id)
	if err != nil {
		return err
	}

	a.printf("#%d %s\n", c.ID, c.Title)
	a.printf("  date:      %s\n", c.CreatedAt.Local().Format("2006-01-02 15:04"))
	a.printf("  sentiment: %s (%.2f)\n", c.Sentiment, c.SentimentScore)
	if len(c.Emotions) > 0 {
		a.printf("  emotions:  %s\n", strings.Join(c.Emotions, ", "))
	}
	a.printf("  category:  %s\n", c.Category)
	if c.Mood != "" {
		a.printf("  mood:      %s\n", c.Mood)
	}
	if c.DurationSeconds > 0 {
		a.printf("  duration:  %s\n", clock(c.DurationSeconds))
	}
	if c.Transcript != "" {
		a.printf("\n%s\n", c.Transcript)
	}
	if c.Text != "" && c.Text != c.Transcript {
		a.printf("\nNote: %s\n", c.Text)
	}
	return nil
}

// Play downloads a check-in's audio to a temporary file and opens the player.
func (a *App) Play(ctx context.Context, id int64) error {
	player := strings.Fields(a.config.PlayCommand)
	if len(player) == 0 {
		return common.ValidationError("no play command configured")
	}

	c, err := a.api.CheckIn(ctx, id)
	if err != nil {
		return err
	}
	if c.PlaybackURL == "" {
		a.printf("Check-in #%d has no audio.\n", id)
		return nil
	}

	f, err := os.CreateTemp("", "mindwell-*.webm")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	_, err = a.api.DownloadAudio(ctx, c.PlaybackURL, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return runPlayer(ctx, player[0], append(player[1:], f.Name())...)
}

// SetToken replaces the access token for the rest of the session.
func (a *App) SetToken(ctx context.Context) error {
	tok, err := GetToken(a.out)
	if err != nil {
		return err
	}
	a.api.SetToken(tok)
	a.config.AccessToken = tok

	if err := a.api.Ping(ctx); err != nil {
		a.online = false
		return err
	}
	a.online = true
	a.printf("Token updated.\n")
	return nil
}
