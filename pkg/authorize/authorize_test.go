package authorize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestShippedPolicy checks the capability table deployed with the
// service, not a test-local rule set.
func TestShippedPolicy(t *testing.T) {
	a, err := NewFromFiles(
		"../../configs/casbin/model.conf",
		"../../configs/casbin/policy.csv",
	)
	require.NoError(t, err)

	cases := []struct {
		role   string
		action Action
		want   bool
	}{
		{"platform_super", ActionFileDeleteImmediate, true},
		{"platform_super", ActionFileApproveDelete, true},
		{"platform_super", ActionUserManage, true},

		{"platform_staff", ActionFileServe, true},
		{"platform_staff", ActionFileApproveDelete, false},
		{"platform_staff", ActionInvoiceDelete, false},

		{"hospital_admin", ActionFileHospitalApprove, true},
		{"hospital_admin", ActionFileDeleteImmediate, true},
		{"hospital_admin", ActionFileUpload, false},

		{"records_staff", ActionFileRequestDelete, true},
		{"records_staff", ActionFileDeleteImmediate, false},

		// uploaders may open a deletion request but never resolve one
		{"uploader", ActionFileRequestDelete, true},
		{"uploader", ActionFileUpload, true},
		{"uploader", ActionFileApproveDelete, false},
		{"uploader", ActionFileRejectDelete, false},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, a.Can(tc.role, tc.action),
			"role %s action %s", tc.role, tc.action)
	}
}

func TestMustEnforce(t *testing.T) {
	a, err := NewFromRules([][2]string{{"records_staff", string(ActionFileServe)}})
	require.NoError(t, err)

	require.NoError(t, a.MustEnforce("records_staff", ActionFileServe))
	require.ErrorIs(t, a.MustEnforce("uploader", ActionFileServe), ErrForbidden)
}
