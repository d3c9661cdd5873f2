// Copyright (C) 2008-2018 by Nicolas Piganeau and the TS2 TEAM
// (See AUTHORS file)
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program; if not, write to the
// Free Software Foundation, Inc.,
// 59 Temple Place - Suite 330, Boston, MA  02111-1307, USA.

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rinmyo/uroj-go/config"
	"github.com/rinmyo/uroj-go/fsm"
	"github.com/rinmyo/uroj-go/instance"
	"github.com/rinmyo/uroj-go/pool"
	"github.com/rinmyo/uroj-go/raw"
	"github.com/rinmyo/uroj-go/store"
)

// instances is the process-wide registry of live interlocking instances.
var instances = pool.New()

// engineDefaults holds the process-level timing knobs every instance built
// by the "create" or "load" action inherits (neither request carries its
// own); set once at startup via SetEngineDefaults from cmd/urojd's parsed
// config.
var engineDefaults config.Config

// SetEngineDefaults records the process configuration so the "create"
// action can seed each new instance.Config's broadcast buffer size,
// sequential-release sweep interval and three-point-check delay.
func SetEngineDefaults(cfg config.Config) {
	engineDefaults = cfg
}

// backingStore is the external persistence boundary, when one is wired in.
// Without it the "load" action is unavailable and run/stop skip the
// record-state bookkeeping; "create" with an inline station document still
// works, which is what tests and store-less deployments use.
var backingStore store.Store

// SetStore wires the external persistence implementation into the instance
// lifecycle: "load" reads records through it, run/stop advance the record
// state, and exam scores are upserted at stop.
func SetStore(st store.Store) {
	backingStore = st
}

func engineConfigDefaults() instance.Config {
	return instance.Config{
		BroadcastBufferSize:    engineDefaults.BroadcastBufferSize,
		SequentialReleaseSweep: engineDefaults.SequentialReleaseSweep,
		ThreePointCheckDelay:   engineDefaults.ThreePointCheckDelay,
	}
}

// instanceObject dispatches every action that targets one instance: the
// lifecycle/command surface (create/load/run/stop/create_route/
// cancel_route/manually_unlock/fault_unlock/spawn_train) and the query
// surface (station_layout/questions/global_status/subscribe).
type instanceObject struct {
	mu   sync.Mutex
	subs map[*connection]func()
}

func (o *instanceObject) engine(req Request) (*instance.Engine, error) {
	var p struct {
		InstanceID string `json:"instanceId"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, fmt.Errorf("unparsable request: %s (%s)", err, req.Params)
		}
	}
	return instances.MustGet(p.InstanceID)
}

// pathBtnParam is the wire shape of an instance.PathBtn.
type pathBtnParam struct {
	ID   string         `json:"id"`
	Kind raw.ButtonKind `json:"kind"`
}

func (o *instanceObject) dispatch(h *Hub, req Request, conn *connection) {
	ch := conn.pushChan
	logger.Debug("Request for instance received", "submodule", "hub", "object", req.Object, "action", req.Action)

	var dispatchErr error
	defer func() { recordCommand(req.Object, req.Action, dispatchErr) }()

	switch req.Action {
	case "create":
		var p struct {
			InstanceID string          `json:"instanceId"`
			Title      string          `json:"title"`
			PlayerID   string          `json:"playerId"`
			Token      string          `json:"token"`
			Station    json.RawMessage `json:"station"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			dispatchErr = fmt.Errorf("unparsable request: %s (%s)", err, req.Params)
			ch <- NewErrorResponse(req.ID, dispatchErr)
			return
		}
		station, err := raw.FromJSON(p.Station)
		if err != nil {
			dispatchErr = err
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		cfg := engineConfigDefaults()
		cfg.ID = p.InstanceID
		cfg.Title = p.Title
		cfg.PlayerID = p.PlayerID
		cfg.Token = p.Token
		cfg.Station = station
		e, err := instance.New(cfg)
		if err != nil {
			dispatchErr = err
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		instances.Insert(e)
		ch <- NewOkResponse(req.ID, "instance created")

	case "load":
		var p struct {
			InstanceID string `json:"instanceId"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			dispatchErr = fmt.Errorf("unparsable request: %s (%s)", err, req.Params)
			ch <- NewErrorResponse(req.ID, dispatchErr)
			return
		}
		if backingStore == nil {
			dispatchErr = fmt.Errorf("no store configured")
			ch <- NewErrorResponse(req.ID, dispatchErr)
			return
		}
		uid, err := uuid.Parse(p.InstanceID)
		if err != nil {
			dispatchErr = fmt.Errorf("unparsable instance id: %s", p.InstanceID)
			ch <- NewErrorResponse(req.ID, dispatchErr)
			return
		}
		e, err := instance.Load(context.Background(), backingStore, uid, engineConfigDefaults())
		if err != nil {
			dispatchErr = err
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		instances.Insert(e)
		ch <- NewOkResponse(req.ID, "instance loaded")

	case "run":
		e, err := o.engine(req)
		if err != nil {
			dispatchErr = err
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		if backingStore != nil {
			err = e.RunWith(context.Background(), backingStore)
		} else {
			err = e.Run()
		}
		if err != nil {
			dispatchErr = err
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		ch <- NewOkResponse(req.ID, string(instance.Playing))

	case "stop":
		e, err := o.engine(req)
		if err != nil {
			dispatchErr = err
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		if backingStore != nil {
			if err := e.StopWith(context.Background(), backingStore); err != nil {
				dispatchErr = err
				ch <- NewErrorResponse(req.ID, err)
				return
			}
		} else {
			e.Stop()
		}
		ch <- NewOkResponse(req.ID, string(instance.Finished))

	case "station_layout":
		e, err := o.engine(req)
		if err != nil {
			dispatchErr = err
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		data, err := json.Marshal(e.Station)
		if err != nil {
			dispatchErr = fmt.Errorf("internal error: %s", err)
			ch <- NewErrorResponse(req.ID, dispatchErr)
			return
		}
		ch <- NewResponse(req.ID, RawJSON(data))

	case "global_status":
		e, err := o.engine(req)
		if err != nil {
			dispatchErr = err
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		ch <- NewResponse(req.ID, e.GlobalStatus())

	case "questions":
		e, err := o.engine(req)
		if err != nil {
			dispatchErr = err
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		ch <- NewResponse(req.ID, e.Exam.Questions())

	case "spawn_train":
		e, err := o.engine(req)
		if err != nil {
			dispatchErr = err
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		var p struct {
			InstanceID string     `json:"instanceId"`
			Node       raw.NodeID `json:"node"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			dispatchErr = fmt.Errorf("unparsable request: %s (%s)", err, req.Params)
			ch <- NewErrorResponse(req.ID, dispatchErr)
			return
		}
		id, err := e.SpawnTrain(p.Node)
		if err != nil {
			dispatchErr = err
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		ch <- NewResponse(req.ID, struct {
			TrainID int `json:"trainId"`
		}{int(id)})

	case "create_route":
		e, err := o.engine(req)
		if err != nil {
			dispatchErr = err
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		var p struct {
			InstanceID string       `json:"instanceId"`
			Start      pathBtnParam `json:"start"`
			End        pathBtnParam `json:"end"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			dispatchErr = fmt.Errorf("unparsable request: %s (%s)", err, req.Params)
			ch <- NewErrorResponse(req.ID, dispatchErr)
			return
		}
		start := time.Now()
		path, err := e.CreateRoute(
			instance.PathBtn{ID: p.Start.ID, Kind: p.Start.Kind},
			instance.PathBtn{ID: p.End.ID, Kind: p.End.Kind},
		)
		recordRouteLatency("create", time.Since(start))
		recordRouteOutcome(err)
		if err != nil {
			dispatchErr = err
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		ch <- NewResponse(req.ID, struct {
			Path []raw.NodeID `json:"path"`
		}{path})

	case "cancel_route":
		e, err := o.engine(req)
		if err != nil {
			dispatchErr = err
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		var p struct {
			InstanceID string       `json:"instanceId"`
			Start      pathBtnParam `json:"start"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			dispatchErr = fmt.Errorf("unparsable request: %s (%s)", err, req.Params)
			ch <- NewErrorResponse(req.ID, dispatchErr)
			return
		}
		start := time.Now()
		err = e.CancelRoute(instance.PathBtn{ID: p.Start.ID, Kind: p.Start.Kind})
		recordRouteLatency("cancel", time.Since(start))
		if err != nil {
			dispatchErr = err
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		ch <- NewOkResponse(req.ID, "route cancelled")

	case "manually_unlock":
		e, err := o.engine(req)
		if err != nil {
			dispatchErr = err
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		var p struct {
			InstanceID string       `json:"instanceId"`
			Start      pathBtnParam `json:"start"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			dispatchErr = fmt.Errorf("unparsable request: %s (%s)", err, req.Params)
			ch <- NewErrorResponse(req.ID, dispatchErr)
			return
		}
		if err := e.ManuallyUnlock(instance.PathBtn{ID: p.Start.ID, Kind: p.Start.Kind}); err != nil {
			dispatchErr = err
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		ch <- NewOkResponse(req.ID, "route unlocked")

	case "fault_unlock":
		e, err := o.engine(req)
		if err != nil {
			dispatchErr = err
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		var p struct {
			InstanceID string     `json:"instanceId"`
			Node       raw.NodeID `json:"node"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			dispatchErr = fmt.Errorf("unparsable request: %s (%s)", err, req.Params)
			ch <- NewErrorResponse(req.ID, dispatchErr)
			return
		}
		if err := e.FaultUnlock(p.Node); err != nil {
			dispatchErr = err
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		ch <- NewOkResponse(req.ID, "node unlocked")

	case "subscribe":
		e, err := o.engine(req)
		if err != nil {
			dispatchErr = err
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		instanceID := e.ID()
		frames, unsub := e.Subscribe()
		o.mu.Lock()
		if o.subs == nil {
			o.subs = make(map[*connection]func())
		}
		o.subs[conn] = unsub
		o.mu.Unlock()
		go func() {
			for f := range frames {
				recordFrame(f.Kind)
				recordAuditFromFrame(instanceID, f)
				select {
				case ch <- NewPush("game_update", f):
				default:
				}
			}
		}()
		ch <- NewOkResponse(req.ID, "subscribed")
		// Seed the new subscriber with a full snapshot so it doesn't have
		// to race the stream with a separate global_status query.
		ch <- NewPush("game_update", fsm.Frame{
			Kind: fsm.FrameUpdateGlobalStatus,
			Data: e.GlobalStatus(),
		})

	default:
		dispatchErr = fmt.Errorf("unknown action %s/%s", req.Object, req.Action)
		ch <- NewErrorResponse(req.ID, dispatchErr)
		logger.Debug("Request for unknown action received", "submodule", "hub", "object", req.Object, "action", req.Action)
	}
}

func (o *instanceObject) onDisconnect(conn *connection) {
	o.mu.Lock()
	unsub, ok := o.subs[conn]
	if ok {
		delete(o.subs, conn)
	}
	o.mu.Unlock()
	if ok {
		unsub()
	}
}

var _ hubObject = new(instanceObject)

func init() {
	obj := new(instanceObject)
	hub.objects["instance"] = obj
	hub.addDisconnectHook(obj.onDisconnect)
}
