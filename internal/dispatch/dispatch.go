package dispatch

import (
	"context"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/lukasbauer/vocalkart/internal/intent"
	"github.com/lukasbauer/vocalkart/internal/metrics"
	"github.com/lukasbauer/vocalkart/internal/share"
	"github.com/lukasbauer/vocalkart/internal/store"
)

// Navigator moves the client to a screen.
type Navigator interface {
	Navigate(ctx context.Context, screen string, params map[string]any) error
}

// ProductRepository creates and finds products.
type ProductRepository interface {
	CreateProduct(ctx context.Context, p store.NewProduct) (*store.Product, error)
	FindProductsByName(ctx context.Context, userID, name string) ([]store.Product, error)
}

// Sharer produces share artifacts and the menu of destinations.
type Sharer interface {
	Generate(ctx context.Context, p store.Product) (*share.Artifacts, error)
	Destinations() []share.Destination
}

// Fixed responses.
const (
	MsgNavigationFailed = "Navigation failed. Please try again."
	MsgClarify          = "Sorry, I didn't understand that. You can say things like 'go to catalog' or 'add 1 kg tomatoes for 35 rupees'."
	MsgWhatInfo         = "What would you like to know? You can ask about your products or stock."
	MsgAddFailed        = "Sorry, I couldn't add the product. Please try again."
	MsgShareFailed      = "Sorry, I couldn't prepare the product for sharing."
	MsgShareWhich       = "Which product would you like to share?"
)

// Outcome statuses, also used as metric labels.
const (
	StatusOK       = "ok"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)

// Options are the fixed values used when creating products by voice.
type Options struct {
	OwnerID  string
	Category string
}

// ShareOffer is a product ready to be shared, with the menu to pick from.
type ShareOffer struct {
	Product      store.Product       `json:"product"`
	Artifacts    *share.Artifacts    `json:"artifacts"`
	Destinations []share.Destination `json:"destinations"`
}

// Outcome is the result of dispatching one intent. Response is always set.
type Outcome struct {
	Response string         `json:"response"`
	Status   string         `json:"status"`
	Product  *store.Product `json:"product,omitempty"`
	Share    *ShareOffer    `json:"share,omitempty"`
	Err      error          `json:"-"`
}

// Dispatcher executes intents.
type Dispatcher struct {
	nav      Navigator
	products ProductRepository
	sharer   Sharer
	opts     Options
	logger   *log.Logger
}

// New creates a dispatcher. Empty options fall back to a placeholder owner
// and category.
func New(nav Navigator, products ProductRepository, sharer Sharer, opts Options, logger *log.Logger) *Dispatcher {
	if opts.OwnerID == "" {
		opts.OwnerID = "default-seller"
	}
	if opts.Category == "" {
		opts.Category = "General"
	}
	return &Dispatcher{
		nav:      nav,
		products: products,
		sharer:   sharer,
		opts:     opts,
		logger:   logger,
	}
}

// Dispatch runs the side effect for in and returns the response to speak.
// ownerID overrides the configured owner when set. Dispatch never fails:
// errors are reported in the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, in intent.Intent, ownerID string) Outcome {
	var out Outcome
	switch in.Action {
	case intent.ActionNavigate:
		out = d.navigate(ctx, in)
	case intent.ActionAddProduct:
		out = d.addProduct(ctx, in, ownerID)
	case intent.ActionShareProduct:
		out = d.shareProduct(ctx, in, ownerID)
	case intent.ActionGetInfo:
		out = d.getInfo(ctx, in)
	default:
		out = Outcome{Response: clarify(in), Status: StatusOK}
	}

	if out.Response == "" {
		out.Response = MsgClarify
	}
	metrics.VoiceCommandsTotal.WithLabelValues(actionLabel(in.Action), out.Status).Inc()
	if out.Err != nil {
		d.logger.Printf("dispatch: %s %s: %v", in.Action, out.Status, out.Err)
	}
	return out
}

func actionLabel(a intent.Action) string {
	if a.Valid() {
		return string(a)
	}
	return string(intent.ActionUnknown)
}

func clarify(in intent.Intent) string {
	if msg := strings.TrimSpace(in.ResponseMessage); msg != "" {
		return msg
	}
	return MsgClarify
}

func (d *Dispatcher) navigate(ctx context.Context, in intent.Intent) Outcome {
	screen, ok := intent.CanonicalScreen(in.String("screen"))
	if !ok {
		return Outcome{
			Response: MsgNavigationFailed,
			Status:   StatusRejected,
			Err:      fmt.Errorf("unknown screen %q", in.String("screen")),
		}
	}
	if err := d.goTo(ctx, screen, nil); err != nil {
		return Outcome{Response: MsgNavigationFailed, Status: StatusFailed, Err: err}
	}

	resp := strings.TrimSpace(in.ResponseMessage)
	if resp == "" {
		resp = "Navigating to " + screenLabel(screen)
	}
	return Outcome{Response: resp, Status: StatusOK}
}

func (d *Dispatcher) goTo(ctx context.Context, screen string, params map[string]any) error {
	if d.nav == nil {
		return fmt.Errorf("no navigator")
	}
	return d.nav.Navigate(ctx, screen, params)
}

var screenLabels = map[string]string{
	intent.ScreenHome:        "home",
	intent.ScreenCatalog:     "catalog",
	intent.ScreenMarketplace: "marketplace",
	intent.ScreenSettings:    "settings",
	intent.ScreenAddProduct:  "add product",
}

func screenLabel(screen string) string {
	if l, ok := screenLabels[screen]; ok {
		return l
	}
	return screen
}

// Upper bounds of what the products table stores: stock_qty is an INTEGER
// and price a NUMERIC(12, 2).
const (
	maxQuantity = math.MaxInt32
	maxPrice    = 1e10
)

// productFields are the add_product parameters after validation.
type productFields struct {
	name     string
	quantity float64
	unit     string
	price    float64
}

// productParams validates an add_product intent. missing lists the absent,
// mistyped or out of range required fields in a fixed order.
func productParams(in intent.Intent) (productFields, []string) {
	var f productFields
	var missing []string

	f.name = in.String("name")
	if f.name == "" {
		missing = append(missing, "name")
	}
	q, ok := in.Number("quantity")
	if !ok || !(q > 0 && q <= maxQuantity) {
		missing = append(missing, "quantity")
	}
	f.quantity = q
	f.unit = in.String("unit")
	if f.unit == "" {
		missing = append(missing, "unit")
	}
	p, ok := in.Number("price")
	if !ok || !(p >= 0 && p < maxPrice) {
		missing = append(missing, "price")
	}
	f.price = p
	return f, missing
}

func (d *Dispatcher) addProduct(ctx context.Context, in intent.Intent, ownerID string) Outcome {
	f, missing := productParams(in)
	if len(missing) > 0 {
		return Outcome{
			Response: fmt.Sprintf("Please tell me the %s of the product.", joinFields(missing)),
			Status:   StatusRejected,
		}
	}
	if d.products == nil {
		return Outcome{Response: MsgAddFailed, Status: StatusFailed, Err: fmt.Errorf("no product repository")}
	}
	ownerID = d.owner(ownerID)

	p, err := d.products.CreateProduct(ctx, store.NewProduct{
		Name:        f.name,
		Price:       f.price,
		Description: description(f),
		StockQty:    stockQty(f.quantity),
		Category:    d.opts.Category,
		UserID:      ownerID,
		Remarks:     "Added by voice",
	})
	if err != nil {
		return Outcome{Response: MsgAddFailed, Status: StatusFailed, Err: fmt.Errorf("failed to create product: %w", err)}
	}

	// The product exists now; a failed navigation only loses the screen change.
	if err := d.goTo(ctx, intent.ScreenCatalog, map[string]any{"productId": p.ID}); err != nil {
		d.logger.Printf("dispatch: navigate to catalog after add failed: %v", err)
	}

	resp := strings.TrimSpace(in.ResponseMessage)
	if resp == "" {
		resp = fmt.Sprintf("Added %s to your catalog for %s rupees.", description(f), formatNumber(f.price))
	}
	return Outcome{Response: resp, Status: StatusOK, Product: p}
}

func (d *Dispatcher) owner(ownerID string) string {
	if ownerID == "" {
		return d.opts.OwnerID
	}
	return ownerID
}

// description renders "<quantity> <unit> of <name>".
func description(f productFields) string {
	return fmt.Sprintf("%s %s of %s", formatNumber(f.quantity), f.unit, f.name)
}

// stockQty rounds q to whole units, at least one. q is already bounded by
// productParams.
func stockQty(q float64) int {
	n := int(math.Round(q))
	if n < 1 {
		return 1
	}
	return n
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func joinFields(fields []string) string {
	switch len(fields) {
	case 1:
		return fields[0]
	case 2:
		return fields[0] + " and " + fields[1]
	}
	return strings.Join(fields[:len(fields)-1], ", ") + " and " + fields[len(fields)-1]
}

// shareProduct offers the first of the seller's products matching the spoken
// name. Products of other sellers are never offered.
func (d *Dispatcher) shareProduct(ctx context.Context, in intent.Intent, ownerID string) Outcome {
	name := in.String("productName")
	if name == "" {
		return Outcome{Response: MsgShareWhich, Status: StatusRejected}
	}
	if d.products == nil || d.sharer == nil {
		return Outcome{Response: MsgShareFailed, Status: StatusFailed, Err: fmt.Errorf("sharing not configured")}
	}

	ownerID = d.owner(ownerID)
	matches, err := d.products.FindProductsByName(ctx, ownerID, name)
	if err != nil {
		return Outcome{Response: MsgShareFailed, Status: StatusFailed, Err: fmt.Errorf("failed to find product: %w", err)}
	}
	product, ok := firstOwned(matches, ownerID)
	if !ok {
		return Outcome{
			Response: fmt.Sprintf("Product %q not found.", name),
			Status:   StatusRejected,
		}
	}

	artifacts, err := d.sharer.Generate(ctx, product)
	if err != nil {
		return Outcome{Response: MsgShareFailed, Status: StatusFailed, Err: fmt.Errorf("failed to generate share: %w", err)}
	}

	resp := strings.TrimSpace(in.ResponseMessage)
	if resp == "" {
		resp = fmt.Sprintf("%s is ready to share. Choose where to send it.", product.Name)
	}
	return Outcome{
		Response: resp,
		Status:   StatusOK,
		Product:  &product,
		Share: &ShareOffer{
			Product:      product,
			Artifacts:    artifacts,
			Destinations: d.sharer.Destinations(),
		},
	}
}

func firstOwned(products []store.Product, ownerID string) (store.Product, bool) {
	for _, p := range products {
		if p.UserID == ownerID {
			return p, true
		}
	}
	return store.Product{}, false
}

// infoRoutes maps get_info types to a screen and response.
var infoRoutes = map[string]struct {
	screen   string
	response string
}{
	"products": {intent.ScreenCatalog, "Here are your products."},
	"stock":    {intent.ScreenCatalog, "Here is your current stock."},
}

func (d *Dispatcher) getInfo(ctx context.Context, in intent.Intent) Outcome {
	route, ok := infoRoutes[strings.ToLower(in.String("type"))]
	if !ok {
		return Outcome{Response: MsgWhatInfo, Status: StatusRejected}
	}
	if err := d.goTo(ctx, route.screen, nil); err != nil {
		return Outcome{Response: MsgNavigationFailed, Status: StatusFailed, Err: err}
	}

	resp := strings.TrimSpace(in.ResponseMessage)
	if resp == "" {
		resp = route.response
	}
	return Outcome{Response: resp, Status: StatusOK}
}
