package protocol

import "strconv"

// EMsg identifies the kind of a Steam message. It is the dispatch key.
type EMsg uint32

// protoMask is set on the raw wire EMsg of messages with a protobuf header.
const protoMask uint32 = 0x80000000

const (
	EMsgInvalid                    EMsg = 0
	EMsgMulti                      EMsg = 1
	EMsgClientHeartBeat            EMsg = 703
	EMsgClientLogOff               EMsg = 706
	EMsgClientLogOnResponse        EMsg = 751
	EMsgClientLoggedOff            EMsg = 757
	EMsgClientCMList               EMsg = 783
	EMsgClientGetUserStats         EMsg = 818
	EMsgClientGetUserStatsResponse EMsg = 819
	EMsgGSServerType               EMsg = 901
	EMsgGSStatusReply              EMsg = 903
	EMsgChannelEncryptRequest      EMsg = 1303
	EMsgChannelEncryptResponse     EMsg = 1304
	EMsgChannelEncryptResult       EMsg = 1305
	EMsgClientTicketAuthComplete   EMsg = 5429
	EMsgClientServersAvailable     EMsg = 5501
	EMsgClientLogonGameServer      EMsg = 5515
)

var emsgNames = map[EMsg]string{
	EMsgInvalid:                    "Invalid",
	EMsgMulti:                      "Multi",
	EMsgClientHeartBeat:            "ClientHeartBeat",
	EMsgClientLogOff:               "ClientLogOff",
	EMsgClientLogOnResponse:        "ClientLogOnResponse",
	EMsgClientLoggedOff:            "ClientLoggedOff",
	EMsgClientCMList:               "ClientCMList",
	EMsgClientGetUserStats:         "ClientGetUserStats",
	EMsgClientGetUserStatsResponse: "ClientGetUserStatsResponse",
	EMsgGSServerType:               "GSServerType",
	EMsgGSStatusReply:              "GSStatusReply",
	EMsgChannelEncryptRequest:      "ChannelEncryptRequest",
	EMsgChannelEncryptResponse:     "ChannelEncryptResponse",
	EMsgChannelEncryptResult:       "ChannelEncryptResult",
	EMsgClientTicketAuthComplete:   "ClientTicketAuthComplete",
	EMsgClientServersAvailable:     "ClientServersAvailable",
	EMsgClientLogonGameServer:      "ClientLogonGameServer",
}

func (e EMsg) String() string {
	if name, ok := emsgNames[e]; ok {
		return name
	}
	return strconv.FormatUint(uint64(e), 10)
}

// usesPlainHeader reports whether legacy messages of this kind carry the
// short MsgHdr instead of ExtendedClientMsgHdr.
func (e EMsg) usesPlainHeader() bool {
	return e == EMsgChannelEncryptRequest ||
		e == EMsgChannelEncryptResponse ||
		e == EMsgChannelEncryptResult
}

// SplitRaw separates a wire EMsg into its kind and protobuf flag.
func SplitRaw(raw uint32) (EMsg, bool) {
	return EMsg(raw &^ protoMask), raw&protoMask != 0
}

// JoinRaw is the inverse of SplitRaw.
func JoinRaw(e EMsg, isProto bool) uint32 {
	if isProto {
		return uint32(e) | protoMask
	}
	return uint32(e)
}
