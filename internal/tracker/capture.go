package tracker

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/iurnickita/affiliatemart/internal/ledger"
	"github.com/iurnickita/affiliatemart/internal/model"
	"github.com/iurnickita/affiliatemart/internal/tracker/config"
	"github.com/iurnickita/affiliatemart/internal/tracker/localstore"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const cookieRef = "affiliate_ref"

var (
	// "Order #12345", "Order ID: 12345", "Your order number is A-100",
	// "Номер заказа: 12345", "Заказ № 777"
	defaultOrderPattern = regexp.MustCompile(`(?i)(?:order|заказ[а-я]*)\s*(?:id|number|no\.?|номер)?(?:\s+is)?\s*[:#№]?\s*([a-z0-9-]*[0-9][a-z0-9-]*)`)
	// "Total: $1,234.50", "Total: 1 234,50", "Итого: 990 ₽", "Сумма заказа 150.00"
	defaultAmountPattern = regexp.MustCompile(`(?i)(?:total|итого|сумма[а-я ]*)[^0-9]{0,20}([0-9](?:[0-9 ,.]*[0-9])?)`)
)

// Page is what the tracker sees of the storefront page it runs on.
type Page struct {
	URL     string
	Content string
}

type Capture struct {
	ReferrerCode string
	OrderID      string
	Amount       *decimal.Decimal
}

type capturer struct {
	store         localstore.Store
	refParam      string
	cookieTTL     time.Duration
	orderPattern  *regexp.Regexp
	amountPattern *regexp.Regexp
	zaplog        *zap.Logger
}

func newCapturer(cfg config.Config, store localstore.Store, zaplog *zap.Logger) (*capturer, error) {
	c := &capturer{
		store:         store,
		refParam:      cfg.RefParam,
		cookieTTL:     cfg.CookieTTL,
		orderPattern:  defaultOrderPattern,
		amountPattern: defaultAmountPattern,
		zaplog:        zaplog,
	}
	var err error
	if cfg.OrderPattern != "" {
		if c.orderPattern, err = regexp.Compile(cfg.OrderPattern); err != nil {
			return nil, err
		}
	}
	if cfg.AmountPattern != "" {
		if c.amountPattern, err = regexp.Compile(cfg.AmountPattern); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Capture resolves the referrer code and the order id of the page. The
// second result is false when either is missing; nothing is sent then.
func (c *capturer) Capture(page Page) (Capture, bool) {
	capture := Capture{ReferrerCode: c.referrer(page.URL)}

	text := visibleText(page.Content)
	capture.OrderID = FindOrderID(text, c.orderPattern)
	if amount, ok := FindAmount(text, c.amountPattern); ok {
		capture.Amount = &amount
	}

	if capture.ReferrerCode == "" || capture.OrderID == "" {
		return capture, false
	}
	return capture, true
}

// referrer reads the ref query parameter and remembers it in the cookie, so
// the confirmation page without parameters still knows the referrer.
func (c *capturer) referrer(pageURL string) string {
	if u, err := url.Parse(pageURL); err == nil {
		if ref := model.NormalizeReferrerCode(u.Query().Get(c.refParam)); ref != "" {
			if err := c.store.SetCookie(cookieRef, ref, c.cookieTTL); err != nil {
				c.zaplog.Warn("failed to save referrer cookie", zap.Error(err))
			}
			return ref
		}
	}

	ref, ok, err := c.store.GetCookie(cookieRef)
	if err != nil {
		c.zaplog.Warn("failed to read referrer cookie", zap.Error(err))
		return ""
	}
	if !ok {
		return ""
	}
	return ref
}

// FindOrderID returns the first order number marker in text, or "".
func FindOrderID(text string, pattern *regexp.Regexp) string {
	m := pattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func FindAmount(text string, pattern *regexp.Regexp) (decimal.Decimal, bool) {
	m := pattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return decimal.Zero, false
	}
	return ledger.ParseAmount(m[1])
}

// visibleText flattens an HTML document into its text nodes. Content that is
// not HTML comes back as is.
func visibleText(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return content
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				b.WriteString(s)
				b.WriteByte(' ')
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return b.String()
}
