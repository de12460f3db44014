package auth

import (
	"reflect"
	"testing"
)

func mergeFixtureRoles() []Role {
	nurse := Role{
		ID: "r-nurse", Code: "nurse", Level: 10,
		Grants: []Grant{
			{
				PermissionCode: PermPatientRecord,
				Capabilities:   Capabilities{Read: true},
				Scope:          ScopeOwn,
			},
			{
				PermissionCode: PermReservation,
				Capabilities:   Capabilities{Create: true, Read: true},
				Scope:          ScopeDepartment,
			},
		},
	}
	headNurse := Role{
		ID: "r-head", Code: "head_nurse", Level: 20,
		Grants: []Grant{
			{
				PermissionCode: PermPatientRecord,
				Capabilities:   Capabilities{Read: true, Update: true},
				Scope:          ScopeDepartment,
			},
			{
				PermissionCode: PermLoginLog,
				Capabilities:   Capabilities{Read: true},
				Scope:          ScopeAll,
			},
		},
	}
	return []Role{nurse, headNurse}
}

func TestMergeUnionsCapabilitiesAndWidensScope(t *testing.T) {
	merged := Merge(mergeFixtureRoles())

	patient, ok := merged[PermPatientRecord]
	if !ok {
		t.Fatal("patient permission missing")
	}
	if !patient.Capabilities.Read || !patient.Capabilities.Update {
		t.Fatalf("capabilities not unioned: %+v", patient.Capabilities)
	}
	if patient.Capabilities.Delete || patient.Capabilities.Export {
		t.Fatalf("capabilities invented: %+v", patient.Capabilities)
	}
	if patient.Scope != ScopeDepartment {
		t.Fatalf("scope not widened: %v", patient.Scope)
	}

	if merged[PermReservation].Scope != ScopeDepartment {
		t.Fatalf("single-role scope changed: %v", merged[PermReservation].Scope)
	}
	if merged[PermLoginLog].Scope != ScopeAll {
		t.Fatalf("all scope lost: %v", merged[PermLoginLog].Scope)
	}
}

func TestMergeCommutativeAndIdempotent(t *testing.T) {
	roles := mergeFixtureRoles()
	forward := Merge(roles)
	reversed := Merge([]Role{roles[1], roles[0]})
	doubled := Merge(append(append([]Role(nil), roles...), roles...))

	if !reflect.DeepEqual(forward, reversed) {
		t.Fatalf("merge depends on role order:\n%+v\n%+v", forward, reversed)
	}
	if !reflect.DeepEqual(forward, doubled) {
		t.Fatalf("duplicate roles changed the result:\n%+v\n%+v", forward, doubled)
	}
}

func TestMergeEmpty(t *testing.T) {
	if got := Merge(nil); len(got) != 0 {
		t.Fatalf("expected empty table, got %+v", got)
	}
}
