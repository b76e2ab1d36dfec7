package audit

import (
	"context"

	"github.com/JianJiangKCL/HooRii/internal/model"
)

// Sink adapts a Log to the orchestrator's control-output sink. Each executed
// command becomes one chained entry; the record is treated as opaque and
// never modified.
type Sink struct {
	log *Log
	// catalogHash identifies the catalog version that validated the command.
	catalogHash string
}

func NewSink(log *Log, catalogHash string) *Sink {
	return &Sink{log: log, catalogHash: catalogHash}
}

func (s *Sink) Record(_ context.Context, out *model.ControlOutput) error {
	return s.log.Record(Entry{
		Timestamp:   out.Timestamp.UTC().Format(TimestampFormat),
		UserID:      out.UserID,
		DeviceID:    out.DeviceID,
		DeviceName:  out.DeviceName,
		DeviceType:  out.DeviceType,
		Command:     out.Command,
		Parameters:  out.Parameters,
		TrustScore:  out.TrustScore,
		CatalogHash: s.catalogHash,
	})
}
