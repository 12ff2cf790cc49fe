package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vitaminmoo/gyverhub/internal/ble"
	"github.com/vitaminmoo/gyverhub/internal/config"
	"github.com/vitaminmoo/gyverhub/internal/demo"
	"github.com/vitaminmoo/gyverhub/internal/firmware"
	"github.com/vitaminmoo/gyverhub/internal/httpd"
	"github.com/vitaminmoo/gyverhub/internal/hub"
	"github.com/vitaminmoo/gyverhub/internal/mdns"
	"github.com/vitaminmoo/gyverhub/internal/mqtt"
	"github.com/vitaminmoo/gyverhub/internal/protocol"
	"github.com/vitaminmoo/gyverhub/internal/store"
	"github.com/vitaminmoo/gyverhub/internal/stream"
	"github.com/vitaminmoo/gyverhub/internal/tui"
	"github.com/vitaminmoo/gyverhub/internal/wsock"
)

// hubOptions turns the runtime settings into hub options. A filesystem that
// cannot be mounted is logged and leaves the file modules disabled.
func hubOptions(cfg *config.Config) (hub.Options, error) {
	disabled, err := protocol.ParseModules(cfg.Disable)
	if err != nil {
		return hub.Options{}, err
	}

	opts := hub.Options{
		Prefix:      cfg.Prefix,
		Name:        cfg.Name,
		Icon:        cfg.Icon,
		Version:     cfg.Version,
		PIN:         cfg.PIN,
		Disabled:    disabled,
		ConnTimeout: cfg.ConnTimeout,
		FetchChunk:  cfg.FetchChunk,
		UploadChunk: cfg.UploadChunk,
		BufferSize:  cfg.BufferSize,
		OTAType:     cfg.OTAType,
		Logger:      config.Log,
	}
	if cfg.ID != 0 {
		opts.ID = protocol.DeviceID(cfg.ID)
	}

	st, err := store.Open(cfg.Root, cfg.FSDepth)
	if err != nil {
		config.Log.WithError(err).WithField("root", cfg.Root).Warn("Filesystem not mounted")
	} else {
		opts.Store = st
	}

	dir := cfg.ImageDir
	if dir == "" && st != nil {
		dir = filepath.Join(filepath.Dir(st.Root()), "ota")
	}
	if dir != "" {
		opts.Updater = &firmware.FileUpdater{Dir: dir, Validate: true}
		opts.Downloader = firmware.NewDownloader(cfg.OTAInsecureTLS, func(current, total int64, _ string) {
			config.Debugf("ota_url: %d/%d bytes", current, total)
		})
	}
	return opts, nil
}

// serve runs the hub and every configured transport until ctx is done or a
// reboot is requested
func serve(ctx context.Context, c *ServeCmd) error {
	cfg := &c.Config
	if c.TUI && cfg.Stdio {
		return errors.New("--tui and --stdio both need the terminal")
	}

	opts, err := hubOptions(cfg)
	if err != nil {
		return err
	}
	h := hub.New(opts)
	h.SetAutoGet(c.AutoGet)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := config.Log.WithFields(logrus.Fields{"id": h.ID(), "prefix": h.Prefix()})

	var feed *tui.Feed
	if c.TUI {
		feed = tui.NewFeed(256)
		config.Log.SetOutput(feed)
		h.OnEvent(feed.Event)
	} else {
		h.OnEvent(func(ev protocol.Event, from protocol.Conn) {
			config.Debugf("event %s from %s", ev, from)
		})
	}
	h.OnReboot(func(r protocol.RebootReason) {
		log.WithField("reason", r).Info("Restarting")
		cancel()
	})

	var panel *demo.Panel
	if !c.NoDemo {
		panel = demo.New(h)
		panel.Attach(h)
	}

	g, ctx := errgroup.WithContext(ctx)
	run := func(fn func(context.Context) error) {
		g.Go(func() error {
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	fail := func(err error) error {
		cancel()
		g.Wait()
		return err
	}

	if cfg.Stdio {
		t := stream.Stdio(h)
		h.AddTransport(t)
		run(t.Serve)
	}
	if cfg.SerialPort != "" {
		t, err := stream.OpenSerial(h, cfg.SerialPort, cfg.SerialBaud)
		if err != nil {
			return fail(err)
		}
		h.AddTransport(t)
		run(t.Serve)
	}
	if cfg.BLE {
		t := ble.New(h, ble.DefaultNotifySize)
		if err := t.Advertise(cfg.Name); err != nil {
			return fail(err)
		}
		h.AddTransport(t)
	}
	if cfg.WSAddr != "" {
		ws := wsock.New(h)
		h.AddTransport(ws)
		run(func(ctx context.Context) error { return ws.ListenAndServe(ctx, cfg.WSAddr) })
	}
	if cfg.HTTPAddr != "" {
		srv := httpd.New(h)
		run(func(ctx context.Context) error { return srv.ListenAndServe(ctx, cfg.HTTPAddr) })
	}
	if cfg.MQTT.Host != "" {
		t, err := mqtt.Connect(h, mqtt.Options{Prefix: h.Prefix(), ID: h.ID(), Config: cfg.MQTT})
		if err != nil {
			return fail(err)
		}
		defer t.Close()
		h.AddTransport(t)
	}
	if cfg.MDNS && cfg.HTTPAddr != "" {
		shutdown, err := mdns.Advertise(mdns.Info{
			Name:     h.Name(),
			ID:       h.ID(),
			Prefix:   h.Prefix(),
			HTTPPort: mdns.PortOf(cfg.HTTPAddr),
			WSPort:   mdns.PortOf(cfg.WSAddr),
		})
		if err != nil {
			log.WithError(err).Warn("mDNS not available")
		} else {
			defer shutdown()
		}
	}

	h.Start()
	log.WithField("disabled", fmt.Sprint(h.Modules().Names())).Info("Hub started")
	run(h.Run)
	if panel != nil {
		run(panel.Run)
	}
	if c.TUI {
		g.Go(func() error {
			defer cancel()
			return tui.Run(ctx, h, feed)
		})
	}

	err = g.Wait()
	h.Stop()
	log.Info("Hub stopped")
	return err
}
