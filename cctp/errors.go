package cctp

import "github.com/relay-bridge/sdk-core/rpcprovider"

var errShortLogData = rpcprovider.NewValidationError("ERR_SHORT_LOG_DATA",
	"DepositForBurn log data is shorter than the expected 32-byte destination-domain word", nil)

var errMessageTooShort = rpcprovider.NewValidationError("ERR_MESSAGE_TOO_SHORT",
	"CCTP message bytes are shorter than the fixed header+body layout", nil)

var errUnknownVersion = rpcprovider.NewValidationError("ERR_UNKNOWN_CCTP_VERSION",
	"CCTP message version byte is neither v1 (0) nor v2 (1)", nil)
