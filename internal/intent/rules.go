package intent

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// fieldOrder is the position of the captured product fields in a pattern.
type fieldOrder int

const (
	// quantity, unit, name, price: "add 1 kg tomatoes for 35 rupees"
	orderQtyUnitNamePrice fieldOrder = iota
	// name, quantity, unit, price: "create rice 50 kg 2500 rupees"
	orderNameQtyUnitPrice
)

type ruleKind int

const (
	kindKeyword ruleKind = iota
	kindProduct
	kindShare
)

// Rule is one row of the fallback pattern table. Rules are evaluated in
// table order and the first rule that extracts parameters wins.
type Rule struct {
	Action     Action
	Language   string
	Keywords   []string
	Pattern    *regexp.Regexp
	Confidence float64

	kind   ruleKind
	order  fieldOrder
	params map[string]any
}

func navigate(screen string, keywords ...string) Rule {
	return Rule{
		Action:     ActionNavigate,
		Language:   "*",
		Keywords:   keywords,
		Confidence: ConfidenceKeyword,
		kind:       kindKeyword,
		params:     map[string]any{"screen": screen},
	}
}

func addProduct(lang string, order fieldOrder, expr string) Rule {
	return Rule{
		Action:     ActionAddProduct,
		Language:   lang,
		Pattern:    regexp.MustCompile(expr),
		Confidence: ConfidencePattern,
		kind:       kindProduct,
		order:      order,
	}
}

func shareProduct(lang, expr string) Rule {
	return Rule{
		Action:     ActionShareProduct,
		Language:   lang,
		Pattern:    regexp.MustCompile(expr),
		Confidence: ConfidenceKeyword,
		kind:       kindShare,
	}
}

func getInfo(infoType string, keywords ...string) Rule {
	return Rule{
		Action:     ActionGetInfo,
		Language:   "*",
		Keywords:   keywords,
		Confidence: ConfidenceKeyword,
		kind:       kindKeyword,
		params:     map[string]any{"type": infoType},
	}
}

const (
	enUnits = `(kg|kgs|kilos?|grams?|pieces?|liters?|litres?)`
	hiUnits = `(किलो|ग्राम|टुकड़े|लीटर|केजी)`
	hiPrice = `(?:रुपये|रुपए|रुपया|रुपय)`
	number  = `(\d+(?:\.\d+)?)`

	// enPrice captures the amount in either "₹60" / "rs 60" or "60 rupees" /
	// "60 rs" form, as two alternative groups.
	enPrice = `(?:(?:₹|rs\.?|inr)\s*` + number + `|` + number + `\s*(?:rupees?|rs\.?|₹|inr))`
)

// defaultRules is the fallback table: navigation, add_product, share_product,
// get_info, in that order.
var defaultRules = []Rule{
	navigate(ScreenCatalog, "catalog", "catalogue", "कैटलॉग", "ఉత్పత్తులు", "காட்டலாக்", "કેટલોગ"),
	navigate(ScreenMarketplace, "marketplace", "market", "बाज़ार", "बाजार", "మార్కెట్", "சந்தை", "બજાર"),
	navigate(ScreenHome, "home", "होम", "ముఖ్య", "முகப்பு", "હોમ"),
	navigate(ScreenSettings, "settings", "सेटिंग्स", "సెట్టింగ్స్", "அமைப்புகள்", "સેટિંગ્સ"),

	addProduct("en", orderQtyUnitNamePrice,
		`(?i)add\s+`+number+`\s*`+enUnits+`\s+(.+?)\s+(?:for|at|price)\s+`+enPrice),
	addProduct("en", orderNameQtyUnitPrice,
		`(?i)create\s+(?:product\s+)?(.+?)\s+`+number+`\s*`+enUnits+`\s+(?:(?:for|at|price)\s+)?`+enPrice),
	addProduct("en", orderQtyUnitNamePrice,
		`(?i)`+number+`\s*`+enUnits+`\s+(.+?)\s+(?:(?:for|at|price)\s+)?`+enPrice),
	addProduct("hi", orderQtyUnitNamePrice,
		number+`\s*`+hiUnits+`\s+(.+?)\s+`+number+`\s*`+hiPrice),
	addProduct("hi", orderNameQtyUnitPrice,
		`(.+?)\s+`+number+`\s*`+hiUnits+`\s+`+number+`\s*`+hiPrice),
	addProduct("te", orderQtyUnitNamePrice,
		number+`\s*(కిలో|గ్రాములు|ముక్కలు|లీటర్లు)\s+(.+?)\s+`+number+`\s*రూపాయలు?`),
	addProduct("gu", orderQtyUnitNamePrice,
		number+`\s*(કિલો|ગ્રામ|ટુકડા|લીટર)\s+(.+?)\s+`+number+`\s*રૂપિયા?`),

	shareProduct("hi", `(?i)(.+?)\s+को\s+(?:share|शेयर)\s+करें`),
	shareProduct("hi", `(?i)(?:share|शेयर)\s+करें\s+(.+)`),
	shareProduct("te", `(.+?)\s+ను\s+పంచుకోండి`),
	shareProduct("en", `(?i)share\s+(?:this\s+)?(?:product\s+)?(.+)`),

	getInfo("stock", "stock", "स्टॉक", "స్టాక్", "ஸ்டாக்", "સ્ટોક"),
	getInfo("products", "show", "list", "दिखाओ", "చూపించు", "காட்டு", "બતાવો"),
}

// shareKeywords must appear before any share pattern is trusted.
var shareKeywords = []string{"share", "शेयर", "పంచుకో"}

// Matcher is the deterministic fallback detector.
type Matcher struct {
	rules []Rule
}

// NewMatcher creates a matcher over the default rule table.
func NewMatcher() *Matcher {
	return &Matcher{rules: defaultRules}
}

// Match returns the intent of the first rule that matches text, or the
// unknown intent.
func (m *Matcher) Match(text string) Intent {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)

	for _, r := range m.rules {
		params, ok := r.apply(text, lower)
		if !ok {
			continue
		}
		return Intent{
			Action:     r.Action,
			Parameters: params,
			Confidence: r.Confidence,
		}
	}
	return Unknown()
}

func (r Rule) apply(text, lower string) (map[string]any, bool) {
	switch r.kind {
	case kindKeyword:
		if !containsAny(lower, r.Keywords) {
			return nil, false
		}
		params := make(map[string]any, len(r.params))
		for k, v := range r.params {
			params[k] = v
		}
		return params, true

	case kindProduct:
		m := r.Pattern.FindStringSubmatch(text)
		if len(m) < 5 {
			return nil, false
		}
		var qty, unit, name string
		switch r.order {
		case orderQtyUnitNamePrice:
			qty, unit, name = m[1], m[2], m[3]
		case orderNameQtyUnitPrice:
			name, qty, unit = m[1], m[2], m[3]
		}
		// Groups from the fourth on are alternative spellings of the price.
		return productParams(qty, unit, name, firstNonEmpty(m[4:]))

	case kindShare:
		if !containsAny(lower, shareKeywords) {
			return nil, false
		}
		m := r.Pattern.FindStringSubmatch(text)
		if len(m) != 2 {
			return nil, false
		}
		name := trimName(m[1])
		if name == "" {
			return nil, false
		}
		return map[string]any{"productName": name}, true
	}
	return nil, false
}

// productParams converts captured groups into typed parameters. Any parse
// failure is a non-match so the next rule gets its turn.
func productParams(qty, unit, name, price string) (map[string]any, bool) {
	q, err := strconv.ParseFloat(qty, 64)
	if err != nil {
		return nil, false
	}
	p, err := strconv.ParseFloat(price, 64)
	if err != nil {
		return nil, false
	}
	name = trimName(name)
	if name == "" {
		return nil, false
	}
	return map[string]any{
		"quantity": q,
		"unit":     strings.ToLower(unit),
		"name":     name,
		"price":    p,
	}, true
}

func firstNonEmpty(groups []string) string {
	for _, g := range groups {
		if g != "" {
			return g
		}
	}
	return ""
}

func trimName(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || r == '।'
	})
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if containsKeyword(lower, kw) {
			return true
		}
	}
	return false
}

// containsKeyword matches Latin keywords on word boundaries so "home" does
// not fire inside "homemade". Other scripts use plain containment because
// combining marks make boundaries unreliable.
func containsKeyword(lower, kw string) bool {
	if !isASCII(kw) {
		return strings.Contains(lower, kw)
	}
	for start := 0; start <= len(lower)-len(kw); {
		i := strings.Index(lower[start:], kw)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(kw)
		if boundaryBefore(lower, i) && boundaryAfter(lower, end) {
			return true
		}
		start = i + 1
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
