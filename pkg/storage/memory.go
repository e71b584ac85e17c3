package storage

import (
	"sync"

	"github.com/turbinefl/turbine/model"
	"github.com/turbinefl/turbine/pkg/errors"
)

type inMemoryHistory struct {
	sync.Mutex

	cap    int
	models []model.GlobalModel
}

func NewInMemoryHistory(cap int) History {
	if cap < 1 {
		cap = 1
	}

	return &inMemoryHistory{cap: cap}
}

func (h *inMemoryHistory) Push(m model.GlobalModel) {
	h.Lock()
	defer h.Unlock()

	h.models = append(h.models, m.Clone())
	if len(h.models) > h.cap {
		h.models = h.models[len(h.models)-h.cap:]
	}
}

func (h *inMemoryHistory) Get(version int) (model.GlobalModel, error) {
	h.Lock()
	defer h.Unlock()

	for i := len(h.models) - 1; i >= 0; i-- {
		if h.models[i].Version == version {
			return h.models[i].Clone(), nil
		}
	}

	return model.GlobalModel{}, errors.ErrNotFound
}

func (h *inMemoryHistory) Latest() (model.GlobalModel, error) {
	h.Lock()
	defer h.Unlock()

	if len(h.models) == 0 {
		return model.GlobalModel{}, errors.ErrNotFound
	}

	return h.models[len(h.models)-1].Clone(), nil
}

func (h *inMemoryHistory) List() []model.GlobalModel {
	h.Lock()
	defer h.Unlock()

	out := make([]model.GlobalModel, len(h.models))
	for i := range h.models {
		out[i] = h.models[i].Clone()
	}

	return out
}

func (h *inMemoryHistory) Len() int {
	h.Lock()
	defer h.Unlock()

	return len(h.models)
}
