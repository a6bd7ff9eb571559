package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		allow  bool
	}{
		{name: "contributor read", role: RoleContributor, action: ActionRead, allow: true},
		{name: "contributor propose", role: RoleContributor, action: ActionPropose, allow: true},
		{name: "contributor comment", role: RoleContributor, action: ActionComment, allow: true},
		{name: "contributor moderate", role: RoleContributor, action: ActionModerate, allow: false},
		{name: "moderator moderate", role: RoleModerator, action: ActionModerate, allow: true},
		{name: "admin moderate", role: RoleAdmin, action: ActionModerate, allow: true},
		{name: "unknown read", role: Role("guest"), action: ActionRead, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.role, tc.action); got != tc.allow {
				t.Fatalf("Can(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.allow)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("moderator"); got != RoleModerator {
		t.Fatalf("Normalize(moderator) = %q", got)
	}
	if got := Normalize(""); got != RoleContributor {
		t.Fatalf("Normalize(\"\") = %q", got)
	}
	if got := Normalize("editor"); got != RoleContributor {
		t.Fatalf("Normalize(editor) = %q", got)
	}
}
