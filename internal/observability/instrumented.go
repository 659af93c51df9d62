package observability

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/p00ya/vivian/internal/vivproto/directory"
	"github.com/p00ya/vivian/internal/vivproto/manager"
)

// InstrumentedDelegate wraps a manager.Delegate, logging its write, error
// and result callbacks and feeding the package's prometheus counters,
// without the core manager package ever importing zerolog or prometheus
// itself. DidStartWaiting and DidFinishWaiting go straight to the embedded
// delegate, neither logged nor counted.
type InstrumentedDelegate struct {
	manager.Delegate
	log zerolog.Logger
}

// Instrument returns a delegate that logs the calls it wraps before
// forwarding them to inner. Writes, errors and command completions are also
// counted; directory entries and the parsed clock are only logged.
func Instrument(inner manager.Delegate, log zerolog.Logger) *InstrumentedDelegate {
	RegisterMetrics()
	return &InstrumentedDelegate{Delegate: inner, log: log}
}

func (d *InstrumentedDelegate) WriteValue(value []byte) error {
	RecordPacketWritten()
	d.log.Debug().Int("bytes", len(value)).Msg("write_value")
	return d.Delegate.WriteValue(value)
}

func (d *InstrumentedDelegate) DidError(kind manager.ErrorKind, message string) {
	RecordError(kind.String())
	d.log.Warn().Str("kind", kind.String()).Str("message", message).Msg("did_error")
	d.Delegate.DidError(kind, message)
}

func (d *InstrumentedDelegate) DidFinishParsingDirectory() {
	RecordCommandFinished("download_directory")
	d.log.Info().Msg("did_finish_parsing_directory")
	d.Delegate.DidFinishParsingDirectory()
}

func (d *InstrumentedDelegate) DidDownloadFile(index uint16, data []byte) {
	RecordCommandFinished("download_file")
	d.log.Info().Uint16("index", index).Int("bytes", len(data)).Msg("did_download_file")
	d.Delegate.DidDownloadFile(index, data)
}

func (d *InstrumentedDelegate) DidEraseFile(index uint16, ok bool) {
	RecordCommandFinished("erase_file")
	d.log.Info().Uint16("index", index).Bool("ok", ok).Msg("did_erase_file")
	d.Delegate.DidEraseFile(index, ok)
}

func (d *InstrumentedDelegate) DidSetTime(ok bool) {
	RecordCommandFinished("set_time")
	d.log.Info().Bool("ok", ok).Msg("did_set_time")
	d.Delegate.DidSetTime(ok)
}

// DidParseClock forwards to the inner delegate's ClockObserver, if any, so
// wrapping a clock-observing delegate in Instrument does not silently drop
// the callback (the embedded manager.Delegate satisfies the interface but
// not the optional extension).
func (d *InstrumentedDelegate) DidParseClock(t time.Time) {
	if observer, ok := d.Delegate.(manager.ClockObserver); ok {
		d.log.Info().Time("device_clock", t).Msg("did_parse_clock")
		observer.DidParseClock(t)
	}
}

var _ manager.ClockObserver = (*InstrumentedDelegate)(nil)

func (d *InstrumentedDelegate) DidParseDirectoryEntry(entry directory.Entry) {
	d.log.Debug().Uint16("index", entry.Index).Msg("did_parse_directory_entry")
	d.Delegate.DidParseDirectoryEntry(entry)
}
