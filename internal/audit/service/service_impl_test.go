package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/revroute/internal/audit/domain"
	auditrepository "github.com/smallbiznis/revroute/internal/audit/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupAuditTest(t *testing.T) (domain.Service, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  auditrepository.Provide(),
	})
	return svc, node
}

func TestRecordAndList(t *testing.T) {
	svc, node := setupAuditTest(t)
	subID := node.Generate()

	err := svc.Record(context.Background(), domain.Entry{
		SubscriptionID: &subID,
		Action:         "pause_window.scheduled",
		PerformedBy:    "admin@club",
		Reason:         "summer break",
		OperationID:    "op_1",
		Metadata:       map[string]any{"window_id": "42"},
	})
	require.NoError(t, err)

	resp, err := svc.List(context.Background(), domain.ListRequest{SubscriptionID: &subID})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	require.Equal(t, "pause_window.scheduled", resp.Entries[0].Action)
	require.Equal(t, "admin@club", resp.Entries[0].PerformedBy)
	require.Nil(t, resp.NextCursor)
}

func TestRecordDuplicateOperation(t *testing.T) {
	svc, node := setupAuditTest(t)
	subID := node.Generate()

	entry := domain.Entry{
		SubscriptionID: &subID,
		Action:         "pause_window.credit_applied",
		OperationID:    "pause_end_42_1718409600",
	}
	require.NoError(t, svc.Record(context.Background(), entry))

	err := svc.Record(context.Background(), entry)
	require.ErrorIs(t, err, domain.ErrDuplicateOperation)

	resp, err := svc.List(context.Background(), domain.ListRequest{SubscriptionID: &subID})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
}

func TestRecordValidation(t *testing.T) {
	svc, _ := setupAuditTest(t)

	err := svc.Record(context.Background(), domain.Entry{OperationID: "op"})
	require.ErrorIs(t, err, domain.ErrInvalidAction)

	err = svc.Record(context.Background(), domain.Entry{Action: "something"})
	require.ErrorIs(t, err, domain.ErrInvalidAction)
}

func TestListPagination(t *testing.T) {
	svc, node := setupAuditTest(t)
	subID := node.Generate()

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Record(context.Background(), domain.Entry{
			SubscriptionID: &subID,
			Action:         "pause_window.scheduled",
			OperationID:    "op_" + node.Generate().String(),
		}))
	}

	first, err := svc.List(context.Background(), domain.ListRequest{SubscriptionID: &subID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Entries, 2)
	require.NotNil(t, first.NextCursor)

	second, err := svc.List(context.Background(), domain.ListRequest{
		SubscriptionID: &subID,
		Limit:          2,
		Cursor:         first.NextCursor,
	})
	require.NoError(t, err)
	require.Len(t, second.Entries, 2)
	require.NotNil(t, second.NextCursor)

	third, err := svc.List(context.Background(), domain.ListRequest{
		SubscriptionID: &subID,
		Limit:          2,
		Cursor:         second.NextCursor,
	})
	require.NoError(t, err)
	require.Len(t, third.Entries, 1)
	require.Nil(t, third.NextCursor)

	seen := map[snowflake.ID]bool{}
	for _, entry := range append(append(first.Entries, second.Entries...), third.Entries...) {
		require.False(t, seen[entry.ID], "entry %s returned twice", entry.ID)
		seen[entry.ID] = true
	}
}
