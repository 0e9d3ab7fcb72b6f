package auth

import "splitride/internal/core"

// The checks below mirror the row-level rules of the schema: they run
// in front of every repository mutation since SQLite enforces none of
// this itself.

// CanReadProfile allows a user to read only their own profile.
func CanReadProfile(s Session, profileID string) error {
	if s.UserID != profileID {
		return core.ErrUnauthorized
	}
	return nil
}

// CanManageSettings allows a rider to manage only their own settings.
func CanManageSettings(s Session, riderID string) error {
	if !s.IsRider() || s.UserID != riderID {
		return core.ErrUnauthorized
	}
	return nil
}

// CanWriteAttendance allows only the partner party to insert or update
// an attendance row.
func CanWriteAttendance(s Session, partnerID string) error {
	if !s.IsPartner() || s.UserID != partnerID {
		return core.ErrUnauthorized
	}
	return nil
}

// CanReadAttendance allows either party of the row to read it.
func CanReadAttendance(s Session, a core.Attendance) error {
	if s.UserID != a.PartnerID && s.UserID != a.RiderID {
		return core.ErrUnauthorized
	}
	return nil
}

// CanCreateRequest allows only the rider to create a request.
func CanCreateRequest(s Session, riderID string) error {
	if !s.IsRider() || s.UserID != riderID {
		return core.ErrUnauthorized
	}
	return nil
}

// CanUpdateRequest allows either party of the request to update it.
func CanUpdateRequest(s Session, r core.Request) error {
	if s.UserID != r.RiderID && s.UserID != r.PartnerID {
		return core.ErrUnauthorized
	}
	return nil
}

// CanPair allows only a partner account to redeem a pairing code.
func CanPair(s Session) error {
	if !s.IsPartner() {
		return core.ErrUnauthorized
	}
	return nil
}
