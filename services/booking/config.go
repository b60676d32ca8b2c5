package booking

import "reserva/models"

// StrategyTable maps each conflict type to its resolution strategy. Built
// once at startup and passed into the engine; never mutated afterwards.
type StrategyTable map[models.ConflictType]models.ResolutionStrategy

// DefaultStrategies returns the default strategy configuration. Strategies
// are mutually exclusive per conflict type.
func DefaultStrategies() StrategyTable {
	return StrategyTable{
		models.ConflictVersion: {
			ID:                  "version-retry",
			ConflictType:        models.ConflictVersion,
			AutomaticResolution: true,
			Actions: []models.StrategyAction{
				{Action: models.ActionRetry, Priority: 1, Params: map[string]any{"max_retries": 3}},
			},
		},
		models.ConflictSlotOverlap: {
			ID:                  "overlap-reschedule",
			ConflictType:        models.ConflictSlotOverlap,
			AutomaticResolution: true,
			Actions: []models.StrategyAction{
				{Action: models.ActionReschedule, Priority: 1},
				{Action: models.ActionNotify, Priority: 2},
			},
		},
		models.ConflictCapacityExceeded: {
			ID:                  "capacity-cancel-reschedule",
			ConflictType:        models.ConflictCapacityExceeded,
			AutomaticResolution: false,
			RequiresApproval:    true,
			Actions: []models.StrategyAction{
				{Action: models.ActionCancelReservation, Priority: 1, Params: map[string]any{"refund": true}},
				{Action: models.ActionReschedule, Priority: 2},
			},
		},
		models.ConflictPayment: {
			ID:                  "payment-reconcile",
			ConflictType:        models.ConflictPayment,
			AutomaticResolution: true,
			RequiresApproval:    true,
			Actions: []models.StrategyAction{
				{Action: models.ActionRetry, Priority: 1},
				{Action: models.ActionReconcilePayments, Priority: 2},
			},
		},
	}
}
