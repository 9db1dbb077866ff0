package smsclient

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ReceiverCreatedMessage is the SMS sent to the receiver when a transfer is
// captured: it carries the reference they quote at the payout counter.
func ReceiverCreatedMessage(receiverName, transactionID string, amountForeign decimal.Decimal) string {
	return Truncate(fmt.Sprintf(
		"Hello %s, a transfer of USD %s is on its way to you. Quote reference %s when collecting.",
		receiverName, amountForeign.StringFixed(2), transactionID,
	))
}

// SenderCompletedMessage is the SMS sent to the sender once the payout has
// been made on the receiving side.
func SenderCompletedMessage(senderName, receiverName, transactionID string) string {
	return Truncate(fmt.Sprintf(
		"Hello %s, your transfer %s to %s has been paid out. Thank you for using our service.",
		senderName, transactionID, receiverName,
	))
}
