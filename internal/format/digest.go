package format

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	ptime "github.com/yaa110/go-persian-calendar"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	gib = float64(1 << 30)
	mib = float64(1 << 20)

	divider        = "━━━━━━━━━━━━━━━\n"
	unknownMessage = "❌ داده نامعتبر یا فرمت ناشناخته"
)

// Digest turns an upstream API response into the Telegram-ready text digest.
// A string input is parsed first; unparseable strings are returned verbatim.
func Digest(data any) string {
	text, _ := DigestShape(data)
	return text
}

// DigestShape is Digest plus the recognized shape tag, for the digest log.
// "Now" is recomputed per call, so remaining-day figures drift forward
// between fetch and render.
func DigestShape(data any) (string, Shape) {
	if s, ok := data.(string); ok {
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			return s, ShapeUnknown
		}
		data = parsed
	}
	return digest(data, time.Now().Unix())
}

func digest(data any, now int64) (string, Shape) {
	shape := Classify(data)
	m := asMap(data)
	switch shape {
	case ShapeServiceList:
		return formatServiceList(m, now), shape
	case ShapeNewService:
		return formatNewService(m, now), shape
	case ShapeSystemStatus:
		return formatSystemStatus(m), shape
	case ShapeServiceDetail:
		return formatServiceDetail(m, now), shape
	case ShapeTimeExtended:
		return formatTimeExtended(m), shape
	case ShapeSizeExtended:
		return formatSizeExtended(m), shape
	default:
		return unknownMessage, ShapeUnknown
	}
}

func formatServiceList(m map[string]any, now int64) string {
	list := arr(m, "list")
	count := strconv.Itoa(len(list))
	if _, ok := m["count"]; ok {
		count = formatAny(m["count"])
	}

	var b strings.Builder
	b.WriteString("📋 لیست سرویس‌ها\n")
	b.WriteString(divider)
	fmt.Fprintf(&b, "📦 تعداد کل: %s سرویس\n\n", count)

	for idx, it := range list {
		item := asMap(it)
		usage := num(item, "usage")
		usedGB := usage / gib
		remainGB := (num(item, "package_size") - usage) / gib
		remainStr := remainingDays(num(item, "expiration_time"), now)
		perDay := usagePerDay(usage, num(item, "day"), remainStr)

		fmt.Fprintf(&b, "🔷 سرویس %d\n", idx+1)
		fmt.Fprintf(&b, "┣ 👤 نام: %s\n", str(item, "username"))
		fmt.Fprintf(&b, "┣ 💾 حجم کل: %sGB\n", formatAny(item["gig"]))
		fmt.Fprintf(&b, "┣ ⏱ مدت: %s روز\n", formatAny(item["day"]))
		fmt.Fprintf(&b, "┣ 📊 مصرف شده: %.2fGB\n", usedGB)
		fmt.Fprintf(&b, "┣ ✅ باقیمانده: %.2fGB\n", remainGB)
		fmt.Fprintf(&b, "┣ ⏳ انقضا: %s روز دیگر\n", remainStr)
		fmt.Fprintf(&b, "┣ 📈 میانگین روزانه: %sGB\n", perDay)
		fmt.Fprintf(&b, "┗ 🔗 لینک: %s\n\n", str(item, "sub_link"))
	}
	return b.String()
}

func formatNewService(m map[string]any, now int64) string {
	remainStr := remainingDays(num(m, "expiryTime"), now)
	created := persianDate(int64(num(m, "created_at")))

	var b strings.Builder
	b.WriteString("🎉 سرویس جدید ساخته شد!\n")
	b.WriteString(divider)
	b.WriteString("\n")
	fmt.Fprintf(&b, "👤 نام سرویس: %s\n", str(m, "username"))
	fmt.Fprintf(&b, "⏱ مدت زمان: %s روز\n", formatAny(m["day"]))
	fmt.Fprintf(&b, "💾 حجم کل: %sGB\n", formatAny(m["gig"]))
	b.WriteString("👥 تعداد کاربر: 1 نفر\n")
	fmt.Fprintf(&b, "📅 تاریخ ساخت: %s\n", created)
	fmt.Fprintf(&b, "⏳ انقضا: %s روز دیگر\n\n", remainStr)
	b.WriteString(divider)
	fmt.Fprintf(&b, "🌐 لینک اصلی:\n%s\n\n", str(m, "sub_link"))

	writeTakLinks(&b, arr(m, "tak_links"))
	return b.String()
}

func formatSystemStatus(m map[string]any) string {
	var b strings.Builder
	b.WriteString("📊 وضعیت کلی سیستم\n")
	b.WriteString(divider)
	b.WriteString("\n")
	fmt.Fprintf(&b, "💰 موجودی کیف پول: %s تومان\n", groupNum(num(m, "balance")))
	fmt.Fprintf(&b, "📦 تعداد کل سرویس‌ها: %s\n", formatAny(m["count_services"]))
	fmt.Fprintf(&b, "✅ سرویس‌های فعال: %s\n\n", formatAny(m["count_active_services"]))
	b.WriteString("💵 تعرفه:\n")
	fmt.Fprintf(&b, "┣ 💾 هر گیگ: %s تومان\n", groupNum(num(m, "per_gb")))
	fmt.Fprintf(&b, "┗ ⏱ هر روز: %s تومان\n\n", formatAny(m["per_day"]))
	fmt.Fprintf(&b, "🌐 وضعیت سیستم: %s\n", formatAny(m["system"]))
	fmt.Fprintf(&b, "📡 پینگ: %s ثانیه\n", formatAny(m["ping"]))
	return b.String()
}

func formatServiceDetail(m map[string]any, now int64) string {
	latest := asMap(m["latest_info"])
	online := asMap(m["online_info"])
	hasValidOnline := m["online_info"] != nil && !truthy(online["error"])

	usage := num(latest, "usage")
	if hasValidOnline {
		usage = num(online, "usage")
	}
	remainGB := (num(latest, "package_size") - usage) / gib
	usedMB := usage / mib
	remainStr := remainingDays(num(latest, "expiration_time"), now)
	perDay := usagePerDay(usage, num(latest, "day"), remainStr)

	var b strings.Builder
	b.WriteString("🔍 جزئیات سرویس\n")
	b.WriteString(divider)
	b.WriteString("\n")
	fmt.Fprintf(&b, "👤 نام سرویس: %s\n\n", str(m, "username"))

	if hasValidOnline && truthy(online["status"]) {
		fmt.Fprintf(&b, "🟢 وضعیت: %s\n", formatAny(online["status"]))
	}

	converted := str(latest, "usage_converted")
	if converted == "" {
		converted = fmt.Sprintf("%.2f مگابایت", usedMB)
	}
	fmt.Fprintf(&b, "📊 حجم مصرفی: %s\n", converted)
	fmt.Fprintf(&b, "✅ باقیمانده: %.2fGB\n", remainGB)
	fmt.Fprintf(&b, "📈 میانگین روزانه: %sGB\n", perDay)
	fmt.Fprintf(&b, "⏳ انقضا: %s روز دیگر\n", remainStr)
	fmt.Fprintf(&b, "📅 تاریخ انقضا: %s\n", formatAny(latest["expire_date"]))
	fmt.Fprintf(&b, "💾 حجم کل: %sGB\n", formatAny(latest["gig"]))
	fmt.Fprintf(&b, "⏱ مدت: %s روز\n\n", formatAny(latest["day"]))
	b.WriteString(divider)
	fmt.Fprintf(&b, "🌐 لینک اصلی:\n%s\n\n", str(latest, "sub_link"))

	takLinks := arr(latest, "tak_links")
	if hasValidOnline {
		if a, ok := online["tak_links"].([]any); ok {
			takLinks = a
		}
	}
	writeTakLinks(&b, takLinks)
	return b.String()
}

func formatTimeExtended(m map[string]any) string {
	var b strings.Builder
	b.WriteString("⏱ تمدید زمان سرویس\n")
	b.WriteString(divider)
	b.WriteString("\n")
	b.WriteString("✅ مدت زمان سرویس با موفقیت افزایش یافت.\n\n")
	fmt.Fprintf(&b, "➕ روزهای افزوده‌شده: %s روز\n", formatAny(m["day_added"]))
	fmt.Fprintf(&b, "📅 تاریخ انقضای جدید: %s\n\n", persianDate(int64(num(m, "new_exp"))))
	b.WriteString("🎯 سرویس شما اکنون فعال است.")
	return b.String()
}

func formatSizeExtended(m map[string]any) string {
	newTotal := formatAny(m["new_gig"])
	if !truthy(m["new_gig"]) {
		newTotal = fmt.Sprintf("%.2f", num(m, "new_size")/gib)
	}

	var b strings.Builder
	b.WriteString("💾 افزایش حجم سرویس\n")
	b.WriteString(divider)
	b.WriteString("\n")
	b.WriteString("✅ حجم سرویس با موفقیت افزایش یافت.\n\n")
	fmt.Fprintf(&b, "➕ حجم افزوده‌شده: %sGB\n", formatAny(m["gig_added"]))
	fmt.Fprintf(&b, "📊 حجم کل جدید: %sGB\n\n", newTotal)
	b.WriteString("🎯 سرویس شما اکنون آماده استفاده است.")
	return b.String()
}

// remainingDays formats (expiration-now)/86400 with one decimal.
func remainingDays(expirationSec float64, now int64) string {
	return fmt.Sprintf("%.1f", (expirationSec-float64(now))/86400)
}

// usagePerDay derives the average daily usage in GB over the elapsed days.
// Elapsed days come from the rounded remaining-days string, not the raw value.
func usagePerDay(usageBytes, totalDays float64, remainStr string) string {
	remain, _ := strconv.ParseFloat(remainStr, 64)
	passed := totalDays - remain
	if passed <= 0 {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", usageBytes/gib/passed)
}

func writeTakLinks(b *strings.Builder, links []any) {
	if len(links) == 0 {
		return
	}
	b.WriteString("🔑 لینک‌های اختصاصی:\n")
	for i, l := range links {
		link, _ := l.(string)
		fmt.Fprintf(b, "%d. %s\n", i+1, linkTag(link))
	}
}

// persianDate renders a unix-seconds timestamp as a Jalali calendar date.
func persianDate(sec int64) string {
	return ptime.Unix(sec, 0).Format("yyyy/MM/dd")
}

var groupPrinter = message.NewPrinter(language.English)

// groupNum formats a number with thousands grouping.
func groupNum(f float64) string {
	if f == float64(int64(f)) {
		return groupPrinter.Sprintf("%d", int64(f))
	}
	return groupPrinter.Sprintf("%.2f", f)
}
