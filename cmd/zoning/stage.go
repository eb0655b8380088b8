package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/frameio"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/metrics"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/store"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/webmonitor"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/zoning"
)

// stage zones frame lines and fans the results out to the optional sinks.
type stage struct {
	engine  *zoning.Engine
	metrics *metrics.Metrics
	store   *store.Store
	monitor *webmonitor.Server
	log     logger.Module
}

// handle implements frameio.Handler.
func (s *stage) handle(ctx context.Context, line []byte) ([]byte, error) {
	start := time.Now()
	s.metrics.FramesRead.Add(1)

	frame, err := frameio.Decode(line)
	if err != nil {
		s.metrics.FramesMalformed.Add(1)
		return nil, err
	}

	res, err := s.engine.PostProcess(&frame.Inference, frame.Objects)
	if err != nil {
		s.metrics.FramesFailed.Add(1)
		if s.monitor != nil {
			s.monitor.Fail()
		}
		return nil, fmt.Errorf("frame %d: %w", frame.Info.Number, err)
	}

	zoningJSON, err := json.Marshal(res.Zoning)
	if err != nil {
		s.metrics.FramesFailed.Add(1)
		return nil, fmt.Errorf("frame %d: encode zoning: %w", frame.Info.Number, err)
	}
	out, err := frameio.Encode(frame, zoningJSON)
	if err != nil {
		s.metrics.FramesFailed.Add(1)
		return nil, fmt.Errorf("frame %d: %w", frame.Info.Number, err)
	}

	took := time.Since(start)
	counts := s.engine.Counts(res.Zoning)
	s.metrics.ObserveFrame(res.Stats, counts, took)

	if s.store != nil {
		if err := s.store.RecordFrame(ctx, frame.Info, counts); err != nil {
			s.log.Warn("Failed to record frame %d: %v", frame.Info.Number, err)
		}
	}
	if s.monitor != nil {
		s.monitor.Publish(webmonitor.ZoningEvent{
			FrameNumber: frame.Info.Number,
			Timestamp:   frame.Info.UnixSeconds(),
			Zoning:      res.Zoning,
			Stats:       res.Stats,
		}, took)
	}
	return out, nil
}

// reportError implements frameio.ErrorFunc.
func (s *stage) reportError(lineNo int, err error) {
	var unknown *zoning.UnknownClassError
	switch {
	case errors.Is(err, frameio.ErrMalformed):
		s.log.Warn("Line %d passed through: %v", lineNo, err)
	case errors.As(err, &unknown):
		s.log.Error("Line %d passed through: class %d is not in the catalog", lineNo, unknown.ClassIndex)
	default:
		s.log.Error("Line %d passed through: %v", lineNo, err)
	}
}
