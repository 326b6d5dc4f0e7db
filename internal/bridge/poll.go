package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/hueadapter/internal/device"
	"github.com/dokzlo13/hueadapter/internal/hue"
	"github.com/dokzlo13/hueadapter/internal/ledger"
)

// Run polls the bridge every PollInterval until ctx is cancelled. A failed
// poll is logged and the next one scheduled as usual. Polls also run right
// after pairing succeeds.
func (s *Session) Run(ctx context.Context) error {
	log.Info().Str("bridge", s.id).Dur("poll_interval", s.cfg.PollInterval).Msg("Bridge poll loop started")

	timer := time.NewTimer(s.cfg.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("bridge", s.id).Msg("Bridge poll loop stopping")
			return nil
		case <-s.wake:
		case <-timer.C:
		}

		s.pollOnce(ctx)
		timer.Reset(s.cfg.PollInterval)
	}
}

func (s *Session) pollOnce(ctx context.Context) {
	err := s.Poll(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotPaired):
		log.Debug().Str("bridge", s.id).Msg("Skipping poll, bridge not paired")
	case ctx.Err() != nil:
	default:
		log.Warn().Err(err).Str("bridge", s.id).Msg("Poll failed")
	}
}

// Poll fetches lights and sensors once, creating devices for new entries
// and updating known ones. Without a username it returns ErrNotPaired and
// makes no request. A failure in one collection does not stop the other.
func (s *Session) Poll(ctx context.Context) error {
	username := s.Username()
	if username == "" {
		return ErrNotPaired
	}

	var errs []error
	if err := s.syncLights(ctx, username); err != nil {
		errs = append(errs, fmt.Errorf("lights: %w", err))
	}
	if err := s.syncSensors(ctx, username); err != nil {
		errs = append(errs, fmt.Errorf("sensors: %w", err))
	}
	return errors.Join(errs...)
}

func (s *Session) syncLights(ctx context.Context, username string) error {
	lights, err := s.client.Lights(ctx, username)
	if err != nil {
		return err
	}

	for _, id := range lights.IDs() {
		r := lights[id]

		d, created := s.lookupOrCreate(device.ClassLight, id, func() *device.Device {
			kind := device.ClassifyLight(r)
			enc := device.ResolveEncoding(s.cfg.ColorEncoding, r)
			return device.NewLight(s.id, id, r, kind, enc, s.host, s)
		})
		if created {
			if !device.KnownLightType(r.Type) {
				s.logUnknownType("light", r.Type, "Unknown light type, using basic light")
			}
			s.announce(d)
			continue
		}
		d.Apply(r, lights)
	}
	return nil
}

func (s *Session) syncSensors(ctx context.Context, username string) error {
	sensors, err := s.client.Sensors(ctx, username)
	if err != nil {
		return err
	}

	for _, id := range sensors.IDs() {
		r := sensors[id]

		// Secondary entries are sub-sensors of a primary one.
		if primary, ok := r.Primary(); ok && !primary {
			continue
		}

		kind, supported := device.ClassifySensor(r.Type)
		if !supported {
			s.logUnknownType("sensor", r.Type, "Unknown sensor type, ignoring")
			continue
		}

		d, created := s.lookupOrCreate(device.ClassSensor, id, func() *device.Device {
			if kind == device.SensorSwitch {
				return device.NewSwitch(s.id, id, r, s.cfg.ButtonPolicy, s.host)
			}
			return device.NewPresenceSensor(s.id, id, r, sensors, s.host)
		})
		if created {
			s.announce(d)
			continue
		}
		d.Apply(r, sensors)
	}
	return nil
}

// lookupOrCreate returns the device registered for class/nativeID, building
// and registering it with build if there is none. The check and the insert
// happen under one lock so an id is never built twice. build runs with s.mu
// held and must not call back into the session.
func (s *Session) lookupOrCreate(class device.Class, nativeID string, build func() *device.Device) (*device.Device, bool) {
	key := string(class) + "/" + nativeID

	s.mu.Lock()
	defer s.mu.Unlock()

	if d, ok := s.devices[key]; ok {
		return d, false
	}
	d := build()
	s.devices[key] = d
	s.byID[d.ID()] = d
	return d, true
}

func (s *Session) announce(d *device.Device) {
	log.Info().
		Str("bridge", s.id).
		Str("device", d.ID()).
		Str("kind", d.Kind()).
		Str("title", d.Title()).
		Msg("Created device")

	if s.host != nil {
		s.host.AddDevice(d)
	}
	s.record(ledger.EventDeviceAdded, map[string]any{
		"device":    d.ID(),
		"native_id": d.NativeID(),
		"kind":      d.Kind(),
		"title":     d.Title(),
	})
}

func (s *Session) logUnknownType(class, typ, msg string) {
	key := class + ":" + typ

	s.mu.Lock()
	seen := s.unknownTypes[key]
	s.unknownTypes[key] = true
	s.mu.Unlock()

	if !seen {
		log.Info().Str("bridge", s.id).Str("type", typ).Msg(msg)
	}
}

// WriteLightState implements device.Writer. Writes are rate limited per
// bridge. Per-field rejections from the bridge are logged, not returned.
func (s *Session) WriteLightState(ctx context.Context, nativeID string, patch hue.StatePatch) error {
	username := s.Username()
	if username == "" {
		return ErrNotPaired
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	results, err := s.client.SetLightState(ctx, username, nativeID, patch)
	if err != nil {
		log.Warn().Err(err).Str("bridge", s.id).Str("native_id", nativeID).Msg("Failed to send light state")
		s.record(ledger.EventWriteFailed, map[string]any{
			"native_id": nativeID,
			"patch":     patch,
			"error":     err.Error(),
		})
		return err
	}

	rejected := 0
	for _, res := range results {
		if res.Error == nil {
			continue
		}
		rejected++
		log.Warn().
			Str("bridge", s.id).
			Str("native_id", nativeID).
			Str("address", res.Error.Address).
			Int("type", res.Error.Type).
			Msg("Bridge rejected state field: " + res.Error.Description)
	}

	s.record(ledger.EventWriteSent, map[string]any{
		"native_id": nativeID,
		"patch":     patch,
		"rejected":  rejected,
	})
	return nil
}
