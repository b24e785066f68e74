package errors

var (
	ErrAlreadyPurchased = &DomainError{
		Code:    "ALREADY_PURCHASED",
		Message: "course already purchased",
	}
	ErrNoActivePurchase = &DomainError{
		Code:    "NO_ACTIVE_PURCHASE",
		Message: "no active purchase found for this course",
	}
	ErrCourseNotFound = &DomainError{
		Code:    "COURSE_NOT_FOUND",
		Message: "course not found",
	}
	ErrCourseNotPurchasable = &DomainError{
		Code:    "COURSE_NOT_PURCHASABLE",
		Message: "course is not available for purchase",
	}
	ErrCoursePriceLocked = &DomainError{
		Code:    "COURSE_PRICE_LOCKED",
		Message: "price cannot be changed after the first purchase",
	}
	ErrDailyPurchaseLimit = &DomainError{
		Code:    "DAILY_PURCHASE_LIMIT",
		Message: "daily purchase limit reached",
	}
)
