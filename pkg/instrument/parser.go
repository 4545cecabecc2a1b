package instrument

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind 标的类型
type Kind string

const (
	KindStock   Kind = "stock"
	KindOption  Kind = "option"
	KindFutures Kind = "futures"
)

// Right 期权方向
type Right string

const (
	RightCall Right = "call"
	RightPut  Right = "put"
)

// Descriptor 标的描述符，由原始代码解析得到
type Descriptor struct {
	Symbol     string    `json:"symbol"`
	Kind       Kind      `json:"kind"`
	Underlying string    `json:"underlying"`
	Strike     float64   `json:"strike"`
	Expiry     time.Time `json:"expiry"`
	Right      Right     `json:"right"`
	Multiplier float64   `json:"multiplier"`
}

// IsOption 是否是期权
func (d Descriptor) IsOption() bool {
	return d.Kind == KindOption
}

var (
	// OCC风格定宽期权代码：标的 + yymmdd + C/P + 8位千分之一行权价
	// 例如 AAPL250620C00150000
	occPattern = regexp.MustCompile(`^([A-Z]{1,6})(\d{6})([CP])(\d{8})$`)
	// 可读期权格式：标的 ISO日期 行权价 Call/Put
	// 例如 "AAPL 2025-06-20 150 Call"
	readablePattern = regexp.MustCompile(`^([A-Z.]{1,6})\s+(\d{4}-\d{2}-\d{2})\s+(\d+(?:\.\d+)?)\s+(?i:(call|put))$`)
	// 期货代码：1-3位品种 + 月份字母 + 2位年份，例如 ESZ25
	futuresPattern = regexp.MustCompile(`^([A-Z]{1,3})([FGHJKMNQUVXZ])(\d{2})$`)
)

// 期货月份字母映射
var futuresMonths = map[byte]time.Month{
	'F': time.January, 'G': time.February, 'H': time.March,
	'J': time.April, 'K': time.May, 'M': time.June,
	'N': time.July, 'Q': time.August, 'U': time.September,
	'V': time.October, 'X': time.November, 'Z': time.December,
}

// Parse 解析原始代码为标的描述符，永不失败：
// 无法识别的格式降级为股票（underlying=symbol, multiplier=1）
func Parse(symbol string) Descriptor {
	trimmed := strings.TrimSpace(symbol)

	if d, ok := parseOCC(trimmed); ok {
		return d
	}
	if d, ok := parseReadable(trimmed); ok {
		return d
	}
	if d, ok := parseFutures(trimmed); ok {
		return d
	}

	return Descriptor{
		Symbol:     trimmed,
		Kind:       KindStock,
		Underlying: trimmed,
		Multiplier: 1,
	}
}

func parseOCC(symbol string) (Descriptor, bool) {
	m := occPattern.FindStringSubmatch(symbol)
	if m == nil {
		return Descriptor{}, false
	}

	expiry, err := time.Parse("060102", m[2])
	if err != nil {
		return Descriptor{}, false
	}

	raw, err := strconv.ParseInt(m[4], 10, 64)
	if err != nil {
		return Descriptor{}, false
	}

	right := RightCall
	if m[3] == "P" {
		right = RightPut
	}

	return Descriptor{
		Symbol:     symbol,
		Kind:       KindOption,
		Underlying: m[1],
		Strike:     float64(raw) / 1000,
		Expiry:     expiry,
		Right:      right,
		Multiplier: 100,
	}, true
}

func parseReadable(symbol string) (Descriptor, bool) {
	m := readablePattern.FindStringSubmatch(symbol)
	if m == nil {
		return Descriptor{}, false
	}

	expiry, err := time.Parse("2006-01-02", m[2])
	if err != nil {
		return Descriptor{}, false
	}

	strike, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return Descriptor{}, false
	}

	right := RightCall
	if strings.EqualFold(m[4], "put") {
		right = RightPut
	}

	return Descriptor{
		Symbol:     symbol,
		Kind:       KindOption,
		Underlying: m[1],
		Strike:     strike,
		Expiry:     expiry,
		Right:      right,
		Multiplier: 100,
	}, true
}

func parseFutures(symbol string) (Descriptor, bool) {
	m := futuresPattern.FindStringSubmatch(symbol)
	if m == nil {
		return Descriptor{}, false
	}

	month := futuresMonths[m[2][0]]
	year, _ := strconv.Atoi(m[3])

	return Descriptor{
		Symbol:     symbol,
		Kind:       KindFutures,
		Underlying: m[1],
		Expiry:     time.Date(2000+year, month, 1, 0, 0, 0, 0, time.UTC),
		Multiplier: 1,
	}, true
}
