package cart

import "fmt"

// NoticeKind classifies a user-facing notification.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
	NoticeInfo    NoticeKind = "info"
)

// Notice is a toast shown to the shopper after an operation.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

const (
	msgInsufficientStock = "موجودی محصول کافی نیست"
	msgRemoved           = "محصول از سبد حذف شد"
	msgInvalidCoupon     = "کد تخفیف نامعتبر است."
	msgCheckoutSucceeded = "خرید با موفقیت انجام شد!"
	msgCheckoutFailed    = "پرداخت انجام نشد. لطفا دوباره تلاش کنید."
	msgRewardGranted     = "تبریک! کد تخفیف %s برنده شدید"
)

func success(msg string) Notice { return Notice{Kind: NoticeSuccess, Message: msg} }
func failure(msg string) Notice { return Notice{Kind: NoticeError, Message: msg} }
func info(msg string) Notice    { return Notice{Kind: NoticeInfo, Message: msg} }

func addedNotice(name string) Notice {
	return success(fmt.Sprintf("%s به سبد خرید اضافه شد", name))
}

// RewardNotice is shown when the spin wheel grants a coupon code.
func RewardNotice(code string) Notice {
	return success(fmt.Sprintf(msgRewardGranted, code))
}
