package handler

import "optimize/internal/experiment/models"

type ExperimentResponse struct {
	Key        string             `json:"key"`
	ID         string             `json:"id"`
	Variations []models.Variation `json:"variations"`
}

type ExperimentListResponse struct {
	Experiments []ExperimentResponse `json:"experiments"`
}

type AssignmentListResponse struct {
	Assignments []models.Assignment `json:"assignments"`
}

// SetVariationRequest forces a variation index. Index is a pointer so a
// missing field is distinguishable from index 0.
type SetVariationRequest struct {
	Index *int `json:"index"`
}
