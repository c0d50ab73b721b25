package memory

import (
	"context"

	"backoffice/internal/core/id"
	"backoffice/internal/domain/audit"
	"backoffice/internal/domain/authz"
)

// Directory returns the authorization directory.
func (s *Store) Directory() authz.Directory { return directory{s} }

// Audit returns an audit recorder keeping entries in the store.
func (s *Store) Audit() audit.Recorder { return auditRecorder{s} }

// GrantRole assigns a role to a user.
func (s *Store) GrantRole(userID id.ID, role string) {
	s.write(func(st *state) { st.roles[userID] = role })
}

// Grant gives permissions to a role.
func (s *Store) Grant(role string, permissions ...string) {
	s.write(func(st *state) {
		if st.grants[role] == nil {
			st.grants[role] = make(map[string]bool)
		}
		for _, p := range permissions {
			st.grants[role][p] = true
		}
	})
}

// SetDefaults flags the default branch and warehouse of a user.
func (s *Store) SetDefaults(userID, branchID, warehouseID id.ID) {
	s.write(func(st *state) {
		st.defaultBranch[userID] = branchID
		st.defaultWarehouse[userID] = warehouseID
	})
}

// AuditEntries returns the recorded audit trail.
func (s *Store) AuditEntries() []audit.Entry {
	var out []audit.Entry
	s.read(func(st *state) { out = append(out, st.audit...) })
	return out
}

type directory struct{ s *Store }

func (d directory) RoleOf(_ context.Context, userID id.ID) (role string, ok bool, err error) {
	d.s.read(func(st *state) { role, ok = st.roles[userID] })
	return role, ok, nil
}

func (d directory) PermissionGranted(_ context.Context, role, permission string) (granted bool, err error) {
	d.s.read(func(st *state) { granted = st.grants[role][permission] })
	return granted, nil
}

func (d directory) DefaultBranch(_ context.Context, userID id.ID) (branchID id.ID, ok bool, err error) {
	d.s.read(func(st *state) { branchID, ok = st.defaultBranch[userID] })
	return branchID, ok, nil
}

func (d directory) DefaultWarehouse(_ context.Context, userID id.ID) (warehouseID id.ID, ok bool, err error) {
	d.s.read(func(st *state) { warehouseID, ok = st.defaultWarehouse[userID] })
	return warehouseID, ok, nil
}

type auditRecorder struct{ s *Store }

func (a auditRecorder) Record(_ context.Context, e audit.Entry) error {
	a.s.write(func(st *state) { st.audit = append(st.audit, e) })
	return nil
}
