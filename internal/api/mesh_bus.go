package api

import (
	"context"

	"go.uber.org/zap"

	database "github.com/Armour007/wellness-backend/internal"
	"github.com/Armour007/wellness-backend/internal/audit"
	"github.com/Armour007/wellness-backend/internal/logging"
	"github.com/Armour007/wellness-backend/internal/mesh"
)

var bus mesh.Bus

// appendAudit is swapped in tests.
var appendAudit = audit.Append

func SetBus(b mesh.Bus) { bus = b }
func getBus() mesh.Bus  { return bus }

func publish(ctx context.Context, topic string, payload any) {
	b := getBus()
	if b == nil {
		return
	}
	e, err := mesh.NewEvent(topic, payload)
	if err != nil {
		logging.L().Error("encode event", zap.String("topic", topic), zap.Error(err))
		return
	}
	if err := b.Publish(ctx, e); err != nil {
		logging.L().Warn("publish event", zap.String("topic", topic), zap.Error(err))
	}
}

func publishUsersChanged(ctx context.Context, u database.User, op string) {
	publish(ctx, mesh.TopicUsersChanged, mesh.EntityChanged{ID: u.ID, DepartmentID: u.DepartmentID, Op: op})
}

func publishDepartmentsChanged(ctx context.Context, id int64, op string) {
	publish(ctx, mesh.TopicDepartmentsChanged, mesh.EntityChanged{ID: id, DepartmentID: &id, Op: op})
}

func publishMetricsSubmitted(ctx context.Context, p mesh.MetricsSubmitted) {
	publish(ctx, mesh.TopicMetricsSubmitted, p)
}

// recordAudit appends to the department's ledger. Failures are logged, not returned.
func recordAudit(ctx context.Context, departmentID *int64, eventType string, actor int64, payload any) {
	if err := appendAudit(ctx, audit.Scope(departmentID), eventType, payload, &actor); err != nil {
		logging.L().Error("audit append failed", zap.String("event_type", eventType), zap.Error(err))
	}
}
