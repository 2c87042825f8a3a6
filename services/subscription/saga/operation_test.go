package saga

import (
	"testing"

	"github.com/ispadmin-io/ispadmin/services/subscription/api/entities"
	"github.com/ispadmin-io/ispadmin/services/subscription/db/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func uintPtr(v uint) *uint {
	return &v
}

func TestClassify(t *testing.T) {
	existing := &model.Subscription{
		Model:            gorm.Model{ID: 7},
		CustomerID:       42,
		ServicePackageID: 1,
		ZoneID:           1,
		NodeID:           5,
		Status:           entities.SubscriptionStatusActive,
	}

	cases := []struct {
		name     string
		existing *model.Subscription
		req      entities.ChangeRequest
		hint     OperationKind
		want     OperationKind
	}{
		{
			name: "no existing subscription is always a create",
			req:  entities.ChangeRequest{CustomerID: 42, ServicePackageID: uintPtr(1)},
			want: Operation_CreateNew,
		},
		{
			name:     "no existing subscription ignores the hint",
			req:      entities.ChangeRequest{CustomerID: 42},
			hint:     Operation_ChangePlan,
			want:     Operation_CreateNew,
			existing: nil,
		},
		{
			name:     "valid hint wins over field inspection",
			existing: existing,
			req:      entities.ChangeRequest{CustomerID: 42, ZoneID: uintPtr(2), NodeID: uintPtr(6)},
			hint:     Operation_ChangePlan,
			want:     Operation_ChangePlan,
		},
		{
			name:     "invalid hint falls through to field inspection",
			existing: existing,
			req:      entities.ChangeRequest{CustomerID: 42, NodeID: uintPtr(6)},
			hint:     OperationKind("REPROVISION"),
			want:     Operation_ChangeNode,
		},
		{
			name:     "different zone classifies as zone change",
			existing: existing,
			req:      entities.ChangeRequest{CustomerID: 42, ZoneID: uintPtr(2), NodeID: uintPtr(6)},
			want:     Operation_ChangeZone,
		},
		{
			name:     "same zone different node classifies as node change",
			existing: existing,
			req:      entities.ChangeRequest{CustomerID: 42, ZoneID: uintPtr(1), NodeID: uintPtr(6)},
			want:     Operation_ChangeNode,
		},
		{
			name:     "address fields alone classify as address change",
			existing: existing,
			req:      entities.ChangeRequest{CustomerID: 42, Street: "Elm St 3"},
			want:     Operation_ChangeAddress,
		},
		{
			name:     "unchanged zone and node with address fields is still an address change",
			existing: existing,
			req:      entities.ChangeRequest{CustomerID: 42, ZoneID: uintPtr(1), NodeID: uintPtr(5), City: "Springfield"},
			want:     Operation_ChangeAddress,
		},
		{
			name:     "everything else is a plan change",
			existing: existing,
			req:      entities.ChangeRequest{CustomerID: 42, ServicePackageID: uintPtr(2)},
			want:     Operation_ChangePlan,
		},
		{
			name:     "empty request against an existing subscription is a plan change",
			existing: existing,
			req:      entities.ChangeRequest{CustomerID: 42},
			want:     Operation_ChangePlan,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.existing, tc.req, tc.hint))
		})
	}
}
