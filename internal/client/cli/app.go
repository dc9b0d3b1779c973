package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/mindwell/internal/client/client"
	"github.com/dmitrijs2005/mindwell/internal/client/config"
	"github.com/dmitrijs2005/mindwell/internal/client/poller"
	"github.com/dmitrijs2005/mindwell/internal/client/recorder"
	"github.com/dmitrijs2005/mindwell/internal/client/repositories/history"
	"github.com/dmitrijs2005/mindwell/internal/client/uploader"
	"github.com/dmitrijs2005/mindwell/internal/logging"
)

type App struct {
	config   *config.Config
	api      client.Client
	uploader *uploader.Uploader
	history  history.Repository
	logger   logging.Logger
	closer   io.Closer

	reader *bufio.Reader
	out    io.Writer

	// microphone builds the live capture device.
	microphone   func() recorder.Device
	recorderOpts []recorder.Option
	pollerOpts   []poller.Option
	online       bool
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewTextLogger(os.Stderr, c.LogLevel)

	repos, err := client.InitDatabase(ctx, c.HistoryDB)
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	api := client.New(c.ServerURL, c.AccessToken, c.RequestTimeout)

	a := &App{
		config:   c,
		api:      api,
		uploader: uploader.New(api, logger),
		history:  repos.History,
		logger:   logger.With("module", "cli"),
		closer:   repos,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}
	a.microphone = a.commandDevice
	a.pollerOpts = []poller.Option{poller.WithInterval(c.PollInterval)}
	a.recorderOpts = []recorder.Option{recorder.WithContentType(c.AudioContentType)}
	return a, nil
}

func (a *App) commandDevice() recorder.Device {
	parts := strings.Fields(a.config.RecordCommand)
	if len(parts) == 0 {
		return &recorder.CommandDevice{}
	}
	return &recorder.CommandDevice{Path: parts[0], Args: parts[1:]}
}

func (a *App) getStatus() string {
	s := "offline"
	if a.online {
		s = "online"
	}
	if a.config.UserID != 0 {
		s = fmt.Sprintf("user %d %s", a.config.UserID, s)
	}
	return fmt.Sprintf("(%s)", s)
}

// Run checks the server and starts the REPL. It blocks until the user exits
// or stdin is closed.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	fmt.Fprintln(a.out, "Welcome to MindWell CLI (type 'help' for commands)")
	if err := a.api.Ping(ctx); err != nil {
		a.logger.Warn(ctx, "server not reachable", "url", a.config.ServerURL, "error", err)
		fmt.Fprintf(a.out, "Server %s is not reachable, uploads will fail until it is back.\n", a.config.ServerURL)
	} else {
		a.online = true
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) Close() {
	if a.closer != nil {
		_ = a.closer.Close()
	}
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
