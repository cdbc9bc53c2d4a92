package cache

import "fmt"

func RoleKey(userID string) string {
	return fmt.Sprintf("role:%s", userID)
}

func PaymentVerifyLockKey(paymentID string) string {
	return fmt.Sprintf("payment:verify:%s", paymentID)
}

func ProfileKey(userID string) string {
	return fmt.Sprintf("profile:%s", userID)
}
