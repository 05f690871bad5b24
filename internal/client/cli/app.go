package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/invoiceclient/internal/client/client"
	"github.com/dmitrijs2005/invoiceclient/internal/client/config"
	"github.com/dmitrijs2005/invoiceclient/internal/client/push"
	"github.com/dmitrijs2005/invoiceclient/internal/client/services"
	"github.com/dmitrijs2005/invoiceclient/internal/client/storage"
	"github.com/dmitrijs2005/invoiceclient/internal/common"
	"github.com/dmitrijs2005/invoiceclient/internal/filex"
	"github.com/dmitrijs2005/invoiceclient/internal/logging"
	"github.com/dmitrijs2005/invoiceclient/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "invoice-client"

// App is the terminal front end: it owns the state containers and the
// REPL that drives them.
type App struct {
	cfg *config.Config
	log logging.Logger

	api     *client.HTTPClient
	session *services.Session
	feed    *services.Notifications
	langs   *services.Languages

	nav     *Navigator
	toaster *Toaster
	doc     *DocumentSink

	reader *bufio.Reader
	out    io.Writer

	closers []func(context.Context) error
}

// NewApp opens durable storage, installs tracing and wires every state
// container to the API described by cfg.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.New(cfg.LogLevel, os.Stderr)

	shutdown, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, serviceName)
	if err != nil {
		log.Error(ctx, "error initializing telemetry", "error", err)
		return nil, err
	}

	if dir := filepath.Dir(cfg.StoragePath); dir != "." {
		if _, err := filex.EnsureDir(dir); err != nil {
			_ = shutdown(ctx)
			return nil, err
		}
	}
	store, err := storage.Open(ctx, cfg.StoragePath)
	if err != nil {
		log.Error(ctx, "error initializing storage", "path", cfg.StoragePath, "error", err)
		_ = shutdown(ctx)
		return nil, err
	}

	hc := &http.Client{
		Timeout:   cfg.RequestTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	a := newApp(cfg, store, log, hc, os.Stdin, os.Stdout)
	a.closers = append(a.closers, func(context.Context) error { return store.Close() }, shutdown)
	return a, nil
}

func newApp(cfg *config.Config, store storage.Store, log logging.Logger, hc *http.Client, in io.Reader, out io.Writer) *App {
	w := &syncWriter{w: out}
	a := &App{
		cfg:     cfg,
		log:     log,
		nav:     NewNavigator(w),
		toaster: NewToaster(w),
		doc:     &DocumentSink{},
		reader:  bufio.NewReader(in),
		out:     w,
	}

	a.api = client.New(cfg.APIBaseURL,
		client.WithHTTPClient(hc),
		client.WithLogger(log.With("component", "api")),
		client.WithNavigator(a.nav),
		client.WithFileSaver(client.DirSaver{Dir: cfg.DownloadDir}),
	)
	a.session = services.NewSession(a.api, store, log.With("component", "session"))
	a.api.SetTokenSource(a.session)

	var dial services.ChannelFactory
	if cfg.PushURL != "" {
		dial = a.dialPush
	}
	a.feed = services.NewNotifications(a.api, dial, a.toaster, log.With("component", "notifications"))

	a.langs = services.NewLanguages(a.api, store, a.session, a.doc, log.With("component", "languages"))
	a.langs.SetDefaultLanguage(cfg.DefaultLanguage)
	a.langs.OnChange(func(code string) {
		a.log.Debug(context.Background(), "language changed", "language", code)
	})
	return a
}

func (a *App) dialPush(userID string) (services.PushChannel, error) {
	token := a.session.AccessToken()
	header := http.Header{}
	if token != "" {
		header.Set(common.AuthorizationHeader, common.BearerPrefix+token)
	}
	c, err := push.New(a.cfg.PushURL,
		push.WithLogger(a.log.With("component", "push")),
		push.WithHeader(header),
		push.WithAuth(map[string]string{"token": token, "user_id": userID}),
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Run restores the previous session when possible and serves the REPL
// until EOF or exit.
func (a *App) Run(ctx context.Context) {
	defer a.Close(ctx)

	fmt.Fprintln(a.out, "Invoice client (type 'help' for commands)")
	a.start(ctx)
	a.runREPL(ctx)
}

func (a *App) start(ctx context.Context) {
	_ = a.langs.GetSupportedLanguages(ctx)
	a.langs.InitializeLanguage(ctx)

	if a.session.InitializeAuth(ctx) {
		fmt.Fprintf(a.out, "Welcome back, %s\n", a.displayName())
		a.afterLogin(ctx)
		return
	}
	a.nav.enter(common.LoginPath)
}

// afterLogin applies the user's language and starts the live feed.
func (a *App) afterLogin(ctx context.Context) {
	a.nav.enter(common.DashboardPath)

	if u := a.session.User(); u != nil && u.PreferredLanguage != "" &&
		u.PreferredLanguage != a.langs.CurrentLanguage() && a.langs.IsSupported(u.PreferredLanguage) {
		_ = a.langs.SetLanguage(ctx, u.PreferredLanguage)
	}

	_ = a.feed.FetchUnreadCount(ctx)
	if a.cfg.PushURL == "" {
		return
	}
	if err := a.feed.InitializeSocket(ctx, a.session.UserID()); err != nil {
		fmt.Fprintln(a.out, "Live notifications unavailable:", err)
	}
}

// endSession drops everything tied to the signed-in user.
func (a *App) endSession() {
	a.feed.DisconnectSocket()
	a.feed.ClearNotifications()
}

func (a *App) displayName() string {
	if name := a.session.FullName(); name != "" {
		return name
	}
	if u := a.session.User(); u != nil {
		return u.Username
	}
	return ""
}

// Close stops the live feed and releases storage and tracing.
func (a *App) Close(ctx context.Context) {
	a.feed.DisconnectSocket()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.log.Warn(ctx, "error during shutdown", "error", err)
	}
}
