// Command vivctl is a demo CLI driving the Viiiiva protocol engine against
// an in-memory simulated device: it sets the device's clock, downloads the
// device's directory and one file, and erases a file, logging every delegate
// callback and serving a /health and /metrics endpoint alongside it.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/p00ya/vivian/internal/config"
	"github.com/p00ya/vivian/internal/observability"
	"github.com/p00ya/vivian/internal/simulator"
	"github.com/p00ya/vivian/internal/vivproto/directory"
	"github.com/p00ya/vivian/internal/vivproto/manager"
)

func main() {
	configPath := flag.String("config", "", "path to a vivctl TOML config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "vivctl: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	log := observability.InitLogger("vivctl")
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	device := simulator.New(cfg.SimulatorSeed, cfg.DeviceClockSkew)
	delegate := observability.Instrument(&cliDelegate{device: device, log: log}, log)
	m := manager.New(delegate)

	status := newStatusServer(log)
	go func() {
		if err := status.ListenAndServe(cfg.StatusListenAddr); err != nil {
			log.Error().Err(err).Msg("status server stopped")
		}
	}()
	log.Info().Str("addr", cfg.StatusListenAddr).Msg("status endpoint listening")

	runDemoSession(m, device, log)
}

// runDemoSession drives the manager through a representative sequence of
// commands against the simulated device, each one issued and drained to
// completion before the next begins, the way a single-threaded caller
// without a command queue of its own must.
func runDemoSession(m *manager.Manager, device *simulator.Device, log zerolog.Logger) {
	m.SetTime(time.Now())
	drain(m, device)

	m.DownloadDirectory()
	drain(m, device)

	m.DownloadFile(1)
	drain(m, device)

	m.EraseFile(2)
	drain(m, device)

	log.Info().Msg("demo session complete")
}

// drain feeds every reply packet the device has queued to m, stopping once
// the device falls silent for a short interval.
func drain(m *manager.Manager, device *simulator.Device) {
	for {
		frame, err := device.Rx(50 * time.Millisecond)
		if err != nil {
			return
		}
		observability.RecordValueNotified()
		m.NotifyValue(frame)
	}
}

// cliDelegate is the demo's Delegate implementation: it forwards writes to
// the simulated device and logs every other callback.
type cliDelegate struct {
	device *simulator.Device
	log    zerolog.Logger
}

func (d *cliDelegate) WriteValue(value []byte) error {
	return d.device.Tx(value)
}

func (d *cliDelegate) DidStartWaiting() {
	d.log.Debug().Msg("did_start_waiting")
}

func (d *cliDelegate) DidFinishWaiting() {
	d.log.Debug().Msg("did_finish_waiting")
}

func (d *cliDelegate) DidError(kind manager.ErrorKind, message string) {
	d.log.Error().Str("kind", kind.String()).Msg(message)
}

func (d *cliDelegate) DidParseDirectoryEntry(entry directory.Entry) {
	d.log.Info().
		Uint16("index", entry.Index).
		Uint32("length", entry.Length).
		Bool("erasable", entry.Erasable()).
		Bool("readable", entry.Readable()).
		Msg("directory_entry")
}

func (d *cliDelegate) DidFinishParsingDirectory() {
	d.log.Info().Msg("directory complete")
}

func (d *cliDelegate) DidDownloadFile(index uint16, data []byte) {
	d.log.Info().Uint16("index", index).Int("bytes", len(data)).Msg("file downloaded")
}

func (d *cliDelegate) DidEraseFile(index uint16, ok bool) {
	d.log.Info().Uint16("index", index).Bool("ok", ok).Msg("file erased")
}

func (d *cliDelegate) DidSetTime(ok bool) {
	d.log.Info().Bool("ok", ok).Msg("clock set")
}

func (d *cliDelegate) DidParseClock(t time.Time) {
	d.log.Info().Time("device_clock", t).Msg("device clock parsed")
}
