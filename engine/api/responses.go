package api

import (
	"net/http"

	"github.com/turbinefl/turbine/engine"
	"github.com/turbinefl/turbine/model"
	"github.com/turbinefl/turbine/modelsync"
	"github.com/turbinefl/turbine/pkg/api"
)

var (
	_ api.Response = (*aggregateResponse)(nil)
	_ api.Response = (*modelResponse)(nil)
	_ api.Response = (*versionResponse)(nil)
	_ api.Response = (*syncStatusResponse)(nil)
	_ api.Response = (*receiveModelResponse)(nil)
	_ api.Response = (*rollbackResponse)(nil)
	_ api.Response = (*statsResponse)(nil)
)

type aggregateResponse struct {
	model.AggregationResult
}

func (r aggregateResponse) Code() int {
	if !r.Success {
		return http.StatusUnprocessableEntity
	}

	return http.StatusCreated
}

func (r aggregateResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r aggregateResponse) Empty() bool {
	return false
}

type modelResponse struct {
	model.GlobalModel
}

func (r modelResponse) Code() int {
	return http.StatusOK
}

func (r modelResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r modelResponse) Empty() bool {
	return false
}

type versionResponse struct {
	Version int `json:"version"`
}

func (r versionResponse) Code() int {
	return http.StatusOK
}

func (r versionResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r versionResponse) Empty() bool {
	return false
}

type syncStatusResponse struct {
	modelsync.State
}

func (r syncStatusResponse) Code() int {
	return http.StatusOK
}

func (r syncStatusResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r syncStatusResponse) Empty() bool {
	return false
}

type receiveModelResponse struct {
	Adopted bool `json:"adopted"`
	Version int  `json:"version"`
}

func (r receiveModelResponse) Code() int {
	if !r.Adopted {
		return http.StatusConflict
	}

	return http.StatusOK
}

func (r receiveModelResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r receiveModelResponse) Empty() bool {
	return false
}

type rollbackResponse struct {
	Version int `json:"version"`
}

func (r rollbackResponse) Code() int {
	return http.StatusOK
}

func (r rollbackResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r rollbackResponse) Empty() bool {
	return false
}

type resolveConflictsResponse struct {
	Resolved int `json:"resolved"`
}

func (r resolveConflictsResponse) Code() int {
	return http.StatusOK
}

func (r resolveConflictsResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r resolveConflictsResponse) Empty() bool {
	return false
}

type statsResponse struct {
	engine.StrategyStats
}

func (r statsResponse) Code() int {
	return http.StatusOK
}

func (r statsResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r statsResponse) Empty() bool {
	return false
}
