package object

import "fmt"

type OriginKind int

const (
	OriginInternal OriginKind = iota
	OriginUser
	OriginServer
)

func (k OriginKind) String() string {
	switch k {
	case OriginInternal:
		return "Internal"
	case OriginUser:
		return "User"
	case OriginServer:
		return "ServerUpdate"
	default:
		return "<unknown origin>"
	}
}

// ChangeOrigin says who caused a mutation. Server updates carry the id of
// the message they came from.
type ChangeOrigin struct {
	Kind  OriginKind
	MsgID string
}

var (
	Internal = ChangeOrigin{Kind: OriginInternal}
	User     = ChangeOrigin{Kind: OriginUser}
)

func ServerUpdate(msgID string) ChangeOrigin {
	return ChangeOrigin{Kind: OriginServer, MsgID: msgID}
}

func (o ChangeOrigin) IsServer() bool {
	return o.Kind == OriginServer
}

func (o ChangeOrigin) String() string {
	if o.Kind == OriginServer {
		return fmt.Sprintf("ServerUpdate{%s}", o.MsgID)
	}
	return o.Kind.String()
}
