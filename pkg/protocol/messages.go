package protocol

// Op identifies one privilege service operation on the wire
type Op uint8

const (
	OpAddApp Op = iota + 1
	OpRemoveApp
	OpGetAppPkgID
	OpGetAppPrivileges
	OpGetPkgPrivileges
	OpUpdateAppPrivileges
	OpGetPrivilegeGroups
	OpGetUserApps
	OpGetAppIDsForPkg
	OpPkgIDExists
)

func (o Op) String() string {
	switch o {
	case OpAddApp:
		return "add-app"
	case OpRemoveApp:
		return "remove-app"
	case OpGetAppPkgID:
		return "get-app-pkg-id"
	case OpGetAppPrivileges:
		return "get-app-privileges"
	case OpGetPkgPrivileges:
		return "get-pkg-privileges"
	case OpUpdateAppPrivileges:
		return "update-app-privileges"
	case OpGetPrivilegeGroups:
		return "get-privilege-groups"
	case OpGetUserApps:
		return "get-user-apps"
	case OpGetAppIDsForPkg:
		return "get-app-ids-for-pkg"
	case OpPkgIDExists:
		return "pkg-id-exists"
	default:
		return "unknown"
	}
}

// Status is the result code carried by every response
type Status uint8

const (
	StatusOK Status = iota
	StatusNotFound
	StatusAccessDenied
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not-found"
	case StatusAccessDenied:
		return "access-denied"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Request is one decoded client request. Field presence depends on Op;
// unused fields stay at their zero value on the wire.
type Request struct {
	Op         Op       `cbor:"1,keyasint"`
	AppID      string   `cbor:"2,keyasint,omitempty"`
	PkgID      string   `cbor:"3,keyasint,omitempty"`
	UID        uint32   `cbor:"4,keyasint,omitempty"`
	Privilege  string   `cbor:"5,keyasint,omitempty"`
	Privileges []string `cbor:"6,keyasint,omitempty"`
}

// Response is the reply to one request
type Response struct {
	Status        Status   `cbor:"1,keyasint"`
	PkgID         string   `cbor:"2,keyasint,omitempty"`
	Names         []string `cbor:"3,keyasint,omitempty"`
	Exists        bool     `cbor:"4,keyasint,omitempty"`
	PkgIDIsNoMore bool     `cbor:"5,keyasint,omitempty"`
}
