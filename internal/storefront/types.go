package storefront

// User is the authenticated account attached to a session.
type User struct {
	ID    int64  `json:"user_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Address is a shipping address owned by a customer.
type Address struct {
	ID         int64  `json:"address_id"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"is_default"`
}

// Product is a catalog entry as served by the backend.
type Product struct {
	ID          int64   `json:"product_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	CategoryID  int64   `json:"category_id"`
	ImageURL    string  `json:"image_url"`
	SellerID    int64   `json:"seller_id"`
}

type Category struct {
	ID   int64  `json:"category_id"`
	Name string `json:"name"`
}

// CartItem is one product line in the customer's cart.
type CartItem struct {
	ItemID   int64   `json:"cart_item_id"`
	Quantity int     `json:"quantity"`
	Product  Product `json:"product"`
}

type Review struct {
	ID        int64  `json:"review_id"`
	ProductID int64  `json:"product_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

// OrderItem is one product line on a placed order.
type OrderItem struct {
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Product   Product `json:"product"`
}

// PaymentRef links an order to the payment attempt that funds it.
// TxRef is the opaque reference round-tripped through the processor redirect.
type PaymentRef struct {
	Status string `json:"status"`
	TxRef  string `json:"tx_ref"`
}

// OrderRecord is the authoritative order entity. The backend owns it; the
// gateway only ever holds a read-only copy.
type OrderRecord struct {
	OrderID       int64       `json:"order_id"`
	Status        string      `json:"status"`
	PaymentStatus string      `json:"payment_status"`
	TotalAmount   float64     `json:"total_amount"`
	Items         []OrderItem `json:"items,omitempty"`
	Address       *Address    `json:"address,omitempty"`
	Payment       *PaymentRef `json:"payment,omitempty"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// PaymentInit is the response to POST /payments/initialize. For redirect
// methods CheckoutURL and TxRef are set; for cash-on-delivery the backend
// creates the order immediately and returns it instead.
type PaymentInit struct {
	CheckoutURL string       `json:"checkout_url,omitempty"`
	TxRef       string       `json:"tx_ref,omitempty"`
	Order       *OrderRecord `json:"order,omitempty"`
}
