package format

// keyLabels maps upstream response field names to their display labels.
var keyLabels = map[string]string{
	"balance":               "موجودی",
	"count_services":        "تعداد سرویس‌ها",
	"count_active_services": "تعداد سرویس‌های فعال",
	"per_gb":                "هزینه به ازای هر گیگ",
	"per_day":               "هزینه به ازای هر روز",
	"system":                "وضعیت سیستم",
	"ping":                  "پینگ",
	"count":                 "تعداد",
	"list":                  "لیست",
	"username":              "نام کاربری",
	"usage":                 "مصرف",
	"gig":                   "مصرف (گیگ)",
	"day":                   "روز باقی‌مانده",
	"expiration_time":       "زمان انقضا (timestamp)",
	"package_size":          "حجم بسته",
	"sub_link":              "لینک اشتراک",
	"hash":                  "هش",
	"online_info":           "اطلاعات آنلاین",
	"status":                "وضعیت",
	"tak_links":             "لینک‌ها",
	"usage_converted":       "مصرف تبدیل‌شده",
	"error":                 "خطا",
	"latest_info":           "آخرین اطلاعات",
	"online_at":             "زمان آنلاین شدن",
	"sub_panel":             "پنل اشتراک",
	"expire_date":           "تاریخ انقضا",
	"created_at":            "تاریخ ایجاد (timestamp)",
	"uid":                   "شناسه کاربر",
}

// Label returns the display label for a response field, falling back to the
// raw key.
func Label(key string) string {
	if l, ok := keyLabels[key]; ok {
		return l
	}
	return key
}
