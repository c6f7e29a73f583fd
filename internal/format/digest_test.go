package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNow = int64(1_700_000_000)

func TestDigestUnparseableStringVerbatim(t *testing.T) {
	text, shape := DigestShape("not json at all")
	assert.Equal(t, "not json at all", text)
	assert.Equal(t, ShapeUnknown, shape)
}

func TestDigestStringPayloadIsParsed(t *testing.T) {
	text, shape := DigestShape(`{"balance":1000,"count_services":2,"count_active_services":1,"per_gb":500,"per_day":100,"system":"ok","ping":0.2}`)
	assert.Equal(t, ShapeSystemStatus, shape)
	assert.Contains(t, text, "📊 وضعیت کلی سیستم")
}

func TestDigestUnknownShape(t *testing.T) {
	text, shape := digest(map[string]any{"foo": "bar"}, testNow)
	assert.Equal(t, unknownMessage, text)
	assert.Equal(t, ShapeUnknown, shape)
}

func TestServiceListEmpty(t *testing.T) {
	text, shape := digest(map[string]any{"list": []any{}}, testNow)
	assert.Equal(t, ShapeServiceList, shape)
	assert.Contains(t, text, "📋 لیست سرویس‌ها")
	assert.Contains(t, text, "📦 تعداد کل: 0 سرویس")
}

func TestServiceListCountKeyOverridesLength(t *testing.T) {
	text, _ := digest(map[string]any{"list": []any{}, "count": float64(5)}, testNow)
	assert.Contains(t, text, "📦 تعداد کل: 5 سرویس")
}

func TestServiceListItem(t *testing.T) {
	item := map[string]any{
		"username":        "ali",
		"gig":             float64(2),
		"day":             float64(10),
		"usage":           float64(1 << 30),
		"package_size":    float64(2 << 30),
		"expiration_time": float64(testNow + 5*86400),
		"sub_link":        "https://panel.example/sub/ali",
	}
	text, _ := digest(map[string]any{"list": []any{item}}, testNow)

	assert.Contains(t, text, "🔷 سرویس 1")
	assert.Contains(t, text, "┣ 👤 نام: ali")
	assert.Contains(t, text, "┣ 💾 حجم کل: 2GB")
	assert.Contains(t, text, "┣ ⏱ مدت: 10 روز")
	assert.Contains(t, text, "┣ 📊 مصرف شده: 1.00GB")
	assert.Contains(t, text, "┣ ✅ باقیمانده: 1.00GB")
	assert.Contains(t, text, "┣ ⏳ انقضا: 5.0 روز دیگر")
	assert.Contains(t, text, "┣ 📈 میانگین روزانه: 0.20GB")
	assert.Contains(t, text, "┗ 🔗 لینک: https://panel.example/sub/ali")
}

func TestSystemStatus(t *testing.T) {
	text, _ := digest(map[string]any{
		"balance":               float64(1_000_000),
		"count_services":        float64(2),
		"count_active_services": float64(1),
		"per_gb":                float64(2500),
		"per_day":               float64(300),
		"system":                "ok",
		"ping":                  0.2,
	}, testNow)

	assert.Contains(t, text, "💰 موجودی کیف پول: 1,000,000 تومان")
	assert.Contains(t, text, "📦 تعداد کل سرویس‌ها: 2")
	assert.Contains(t, text, "✅ سرویس‌های فعال: 1")
	assert.Contains(t, text, "┣ 💾 هر گیگ: 2,500 تومان")
	assert.Contains(t, text, "┗ ⏱ هر روز: 300 تومان")
	assert.Contains(t, text, "🌐 وضعیت سیستم: ok")
	assert.Contains(t, text, "📡 پینگ: 0.2 ثانیه")
}

func TestNewService(t *testing.T) {
	text, shape := digest(map[string]any{
		"username":   "new-user",
		"gig":        float64(20),
		"day":        float64(30),
		"expiryTime": float64(testNow + 30*86400),
		"created_at": float64(testNow),
		"sub_link":   "https://panel.example/sub/new-user",
		"tak_links":  []any{"vless://aaa#Tag%20One", "vless://bbb"},
	}, testNow)

	assert.Equal(t, ShapeNewService, shape)
	assert.Contains(t, text, "🎉 سرویس جدید ساخته شد!")
	assert.Contains(t, text, "👤 نام سرویس: new-user")
	assert.Contains(t, text, "⏱ مدت زمان: 30 روز")
	assert.Contains(t, text, "💾 حجم کل: 20GB")
	assert.Contains(t, text, "👥 تعداد کاربر: 1 نفر")
	assert.Regexp(t, `📅 تاریخ ساخت: \d{4}/\d{2}/\d{2}\n`, text)
	assert.Contains(t, text, "⏳ انقضا: 30.0 روز دیگر")
	assert.Contains(t, text, "🌐 لینک اصلی:\nhttps://panel.example/sub/new-user")
	assert.Contains(t, text, "🔑 لینک‌های اختصاصی:")
	assert.Contains(t, text, "1. Tag One")
	assert.Contains(t, text, "2. vless://bbb")
}

func TestServiceDetail(t *testing.T) {
	data := map[string]any{
		"username": "ali",
		"latest_info": map[string]any{
			"usage":           float64(1 << 29), // 0.5 GiB
			"package_size":    float64(2 << 30),
			"expiration_time": float64(testNow + 10*86400),
			"day":             float64(20),
			"gig":             float64(2),
			"expire_date":     "2026/09/10",
			"sub_link":        "https://panel.example/sub/ali",
			"tak_links":       []any{"vless://aaa#Ali"},
		},
	}
	text, shape := digest(data, testNow)
	require.Equal(t, ShapeServiceDetail, shape)

	assert.Contains(t, text, "🔍 جزئیات سرویس")
	assert.Contains(t, text, "👤 نام سرویس: ali")
	assert.NotContains(t, text, "🟢 وضعیت")
	assert.Contains(t, text, "📊 حجم مصرفی: 512.00 مگابایت")
	assert.Contains(t, text, "✅ باقیمانده: 1.50GB")
	assert.Contains(t, text, "⏳ انقضا: 10.0 روز دیگر")
	assert.Contains(t, text, "📈 میانگین روزانه: 0.05GB")
	assert.Contains(t, text, "📅 تاریخ انقضا: 2026/09/10")
	assert.Contains(t, text, "1. Ali")
}

func TestServiceDetailOnlineInfoPrecedence(t *testing.T) {
	data := map[string]any{
		"username": "ali",
		"latest_info": map[string]any{
			"usage":           float64(1 << 30),
			"package_size":    float64(2 << 30),
			"expiration_time": float64(testNow + 10*86400),
			"day":             float64(20),
			"usage_converted": "1 گیگابایت",
			"tak_links":       []any{"vless://stale"},
		},
		"online_info": map[string]any{
			"usage":     float64(3 << 29), // 1.5 GiB, fresher reading
			"status":    "آنلاین",
			"tak_links": []any{},
		},
	}
	text, _ := digest(data, testNow)

	assert.Contains(t, text, "🟢 وضعیت: آنلاین")
	// Online usage drives the remaining figure.
	assert.Contains(t, text, "✅ باقیمانده: 0.50GB")
	// usage_converted from latest_info still wins the usage line.
	assert.Contains(t, text, "📊 حجم مصرفی: 1 گیگابایت")
	// The online tak_links key is present, so its empty list replaces the stale one.
	assert.NotContains(t, text, "vless://stale")
	assert.NotContains(t, text, "🔑 لینک‌های اختصاصی")
}

func TestServiceDetailOnlineErrorIgnored(t *testing.T) {
	data := map[string]any{
		"username": "ali",
		"latest_info": map[string]any{
			"usage":           float64(1 << 30),
			"package_size":    float64(2 << 30),
			"expiration_time": float64(testNow + 10*86400),
			"day":             float64(20),
		},
		"online_info": map[string]any{
			"error": "timeout",
			"usage": float64(0),
		},
	}
	text, _ := digest(data, testNow)
	assert.Contains(t, text, "✅ باقیمانده: 1.00GB")
	assert.NotContains(t, text, "🟢 وضعیت")
}

func TestTimeExtended(t *testing.T) {
	text, shape := digest(map[string]any{
		"new_exp":   float64(testNow + 60*86400),
		"day_added": float64(30),
	}, testNow)

	assert.Equal(t, ShapeTimeExtended, shape)
	assert.Contains(t, text, "⏱ تمدید زمان سرویس")
	assert.Contains(t, text, "➕ روزهای افزوده‌شده: 30 روز")
	assert.Regexp(t, `📅 تاریخ انقضای جدید: \d{4}/\d{2}/\d{2}\n`, text)
	assert.Contains(t, text, "🎯 سرویس شما اکنون فعال است.")
}

func TestSizeExtendedWithNewGig(t *testing.T) {
	text, shape := digest(map[string]any{
		"new_size":  float64(50 << 30),
		"new_gig":   float64(50),
		"gig_added": float64(10),
	}, testNow)

	assert.Equal(t, ShapeSizeExtended, shape)
	assert.Contains(t, text, "💾 افزایش حجم سرویس")
	assert.Contains(t, text, "➕ حجم افزوده‌شده: 10GB")
	assert.Contains(t, text, "📊 حجم کل جدید: 50GB")
}

func TestSizeExtendedWithoutNewGig(t *testing.T) {
	text, _ := digest(map[string]any{
		"new_size":  float64(5 << 30),
		"gig_added": float64(1),
	}, testNow)
	assert.Contains(t, text, "📊 حجم کل جدید: 5.00GB")
}

func TestRemainingDays(t *testing.T) {
	assert.Equal(t, "5.0", remainingDays(float64(testNow+5*86400), testNow))
	assert.Equal(t, "0.5", remainingDays(float64(testNow+43200), testNow))
	assert.Equal(t, "-1.0", remainingDays(float64(testNow-86400), testNow))
}

func TestUsagePerDay(t *testing.T) {
	// 10 GiB used, 30-day package, 5.0 days remaining.
	assert.Equal(t, "0.40", usagePerDay(float64(10<<30), 30, "5.0"))
	// Nothing elapsed yet.
	assert.Equal(t, "0.00", usagePerDay(float64(1<<30), 30, "30.0"))
	assert.Equal(t, "0.00", usagePerDay(float64(1<<30), 30, "31.0"))
}
