package storage

import "github.com/turbinefl/turbine/model"

// History is a bounded store of historical global models kept for rollback.
// Pushing beyond the cap evicts the oldest retained version.
type History interface {
	Push(m model.GlobalModel)
	Get(version int) (model.GlobalModel, error)
	Latest() (model.GlobalModel, error)
	List() []model.GlobalModel
	Len() int
}
