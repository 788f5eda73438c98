package chart

import (
	"github.com/Rrens/flexy-chat/internal/domain"
	"github.com/rs/zerolog/log"
)

// source yields the chart of a frame, or nil when it has none
type source func(frame domain.Frame) *domain.ChartRecord

// sources are tried in priority order
var sources = []source{
	fromMetadata,
	fromContent,
}

// Resolve picks the single chart attached to an AI response. Structured
// metadata wins over a chart found in the reply text.
func Resolve(frame domain.Frame) *domain.ChartRecord {
	for _, src := range sources {
		if rec := src(frame); rec != nil {
			return rec
		}
	}
	return nil
}

func fromMetadata(frame domain.Frame) *domain.ChartRecord {
	payload := frame.Data.ChartPayload()
	if payload == nil {
		return nil
	}
	rec, err := FromMap(payload)
	if err != nil {
		log.Debug().Err(err).Msg("ignoring chart metadata")
		return nil
	}
	return rec
}

// fromContent takes the first balanced block of the reply that decodes to a
// chart.
func fromContent(frame domain.Frame) *domain.ChartRecord {
	for _, sp := range scanBlocks(frame.Content) {
		if rec, err := decodeBlock([]byte(frame.Content[sp.start:sp.end])); err == nil {
			return rec
		}
	}
	return nil
}
