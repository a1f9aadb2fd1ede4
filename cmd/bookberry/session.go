package main

import (
	"errors"
	"os"

	"github.com/samber/do/v2"

	"github.com/bookberryapp/bookberry-server/internal/client"
	"github.com/bookberryapp/bookberry-server/internal/client/local"
	"github.com/bookberryapp/bookberry-server/internal/client/remote"
	"github.com/bookberryapp/bookberry-server/internal/logger"
)

var errRemoteOnly = errors.New("this command needs a server; drop --local")

// session owns the injector that provides the shelf facade for one command.
// Closing it shuts the facade down.
type session struct {
	injector *do.RootScope
	opts     globalOptions
}

func openSession(opts globalOptions) *session {
	injector := do.New()
	do.ProvideValue(injector, opts)
	do.Provide(injector, provideLogger)
	do.Provide(injector, provideRemoteLibrary)
	do.Provide(injector, provideLocalLibrary)
	do.Provide(injector, provideLibrary)
	return &session{injector: injector, opts: opts}
}

// Library returns the facade selected by --local.
func (s *session) Library() (client.Library, error) {
	return do.Invoke[client.Library](s.injector)
}

// Remote returns the server facade for commands that have no local form.
func (s *session) Remote() (*remote.Library, error) {
	if s.opts.Local {
		return nil, errRemoteOnly
	}
	return do.Invoke[*remote.Library](s.injector)
}

// Close shuts down everything the session created.
func (s *session) Close() {
	log := do.MustInvoke[*logger.Logger](s.injector)
	report := s.injector.Shutdown()
	log.Debug("session closed", "shutdown", report)
}

func provideLogger(i do.Injector) (*logger.Logger, error) {
	opts := do.MustInvoke[globalOptions](i)
	if opts.Quiet {
		return logger.Discard(), nil
	}
	return logger.New(logger.Config{
		Writer:      os.Stderr,
		Level:       logger.ParseLevel(opts.LogLevel),
		Environment: "development",
	}), nil
}

func provideRemoteLibrary(i do.Injector) (*remote.Library, error) {
	opts := do.MustInvoke[globalOptions](i)
	log := do.MustInvoke[*logger.Logger](i)

	return remote.New(remote.Config{
		BaseURL: opts.ServerURL,
		Token:   opts.Token,
		Timeout: opts.Timeout,
	}, log.Logger)
}

func provideLocalLibrary(i do.Injector) (*local.Library, error) {
	opts := do.MustInvoke[globalOptions](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(opts.DataDir, 0o700); err != nil {
		return nil, err
	}
	return local.Open(local.Options{Path: opts.LocalPath()}, log.Logger)
}

func provideLibrary(i do.Injector) (client.Library, error) {
	opts := do.MustInvoke[globalOptions](i)
	if opts.Local {
		lib, err := do.Invoke[*local.Library](i)
		if err != nil {
			return nil, err
		}
		return lib, nil
	}
	lib, err := do.Invoke[*remote.Library](i)
	if err != nil {
		return nil, err
	}
	return lib, nil
}
