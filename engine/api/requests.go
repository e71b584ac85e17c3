package api

import (
	"errors"

	"github.com/turbinefl/turbine/engine"
	"github.com/turbinefl/turbine/model"
	"github.com/turbinefl/turbine/modelsync"
	pkgerrors "github.com/turbinefl/turbine/pkg/errors"
)

var (
	errMissingModel    = errors.New("missing model")
	errMissingStrategy = errors.New("missing resolution strategy")
	errInvalidVersion  = errors.New("version must be positive")
)

type aggregateReq struct {
	engine.AggregationRequest `json:",inline"`
}

func (r *aggregateReq) validate() error {
	for i := range r.Updates {
		if r.Updates[i].Weights.IsEmpty() {
			return pkgerrors.ErrInvalidData
		}
	}

	return nil
}

type receiveModelReq struct {
	Model  model.GlobalModel `json:"model"`
	Source string            `json:"source"`
}

func (r *receiveModelReq) validate() error {
	if r.Model.Weights.IsEmpty() {
		return errMissingModel
	}
	if r.Source == "" {
		r.Source = "remote"
	}

	return nil
}

type rollbackReq struct {
	Version int `json:"version"`
}

func (r *rollbackReq) validate() error {
	if r.Version <= 0 {
		return errInvalidVersion
	}

	return nil
}

type resolveConflictsReq struct {
	Conflicts []modelsync.Conflict         `json:"conflicts"`
	Strategy  modelsync.ResolutionStrategy `json:"strategy"`
}

func (r *resolveConflictsReq) validate() error {
	if r.Strategy == "" {
		return errMissingStrategy
	}

	return nil
}

type emptyReq struct{}
