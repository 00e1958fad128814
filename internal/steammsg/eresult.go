package steammsg

import "strconv"

// EResult is the Steam result code carried by responses and callbacks.
type EResult int32

const (
	EResultInvalid             EResult = 0
	EResultOK                  EResult = 1
	EResultFail                EResult = 2
	EResultNoConnection        EResult = 3
	EResultInvalidPassword     EResult = 5
	EResultLoggedInElsewhere   EResult = 6
	EResultInvalidProtocolVer  EResult = 7
	EResultInvalidParam        EResult = 8
	EResultBusy                EResult = 10
	EResultInvalidState        EResult = 11
	EResultAccessDenied        EResult = 15
	EResultTimeout             EResult = 16
	EResultServiceUnavailable  EResult = 20
	EResultNotLoggedOn         EResult = 21
	EResultInvalidSteamID      EResult = 19
	EResultLogonSessionReplace EResult = 34
	EResultTryAnotherCM        EResult = 48
)

var eresultNames = map[EResult]string{
	EResultInvalid:             "Invalid",
	EResultOK:                  "OK",
	EResultFail:                "Fail",
	EResultNoConnection:        "NoConnection",
	EResultInvalidPassword:     "InvalidPassword",
	EResultLoggedInElsewhere:   "LoggedInElsewhere",
	EResultInvalidProtocolVer:  "InvalidProtocolVer",
	EResultInvalidParam:        "InvalidParam",
	EResultBusy:                "Busy",
	EResultInvalidState:        "InvalidState",
	EResultAccessDenied:        "AccessDenied",
	EResultTimeout:             "Timeout",
	EResultServiceUnavailable:  "ServiceUnavailable",
	EResultNotLoggedOn:         "NotLoggedOn",
	EResultInvalidSteamID:      "InvalidSteamID",
	EResultLogonSessionReplace: "LogonSessionReplaced",
	EResultTryAnotherCM:        "TryAnotherCM",
}

func (r EResult) String() string {
	if name, ok := eresultNames[r]; ok {
		return name
	}
	return "EResult(" + strconv.Itoa(int(r)) + ")"
}
