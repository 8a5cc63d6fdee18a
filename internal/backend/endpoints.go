package backend

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) GetCart(ctx context.Context, sessionID, customerID string) ([]CartItem, error) {
	var out struct {
		Items []CartItem `json:"items"`
	}
	q := url.Values{"customerId": {customerID}}
	err := c.do(ctx, sessionID, http.MethodGet, "/cart", q, nil, &out)
	c.count("cart", err)
	return out.Items, err
}

func (c *Client) ListAddresses(ctx context.Context, sessionID, customerID string) ([]Address, error) {
	var out struct {
		Addresses []Address `json:"addresses"`
	}
	err := c.do(ctx, sessionID, http.MethodGet, "/customer/"+customerID+"/address", nil, nil, &out)
	c.count("address_list", err)
	return out.Addresses, err
}

func (c *Client) CreateAddress(ctx context.Context, sessionID, customerID string, draft Address) (Address, error) {
	var out struct {
		Address Address `json:"address"`
	}
	err := c.do(ctx, sessionID, http.MethodPost, "/customer/"+customerID+"/address", nil, draft, &out)
	c.count("address_create", err)
	return out.Address, err
}

func (c *Client) Countries(ctx context.Context, sessionID string) ([]GeoRef, error) {
	var out struct {
		Countries []GeoRef `json:"countries"`
	}
	err := c.do(ctx, sessionID, http.MethodGet, "/master/countries", nil, nil, &out)
	c.count("geo_countries", err)
	return out.Countries, err
}

func (c *Client) States(ctx context.Context, sessionID, countryID string) ([]GeoRef, error) {
	var out struct {
		States []GeoRef `json:"states"`
	}
	q := url.Values{"countryId": {countryID}}
	err := c.do(ctx, sessionID, http.MethodGet, "/master/states", q, nil, &out)
	c.count("geo_states", err)
	return out.States, err
}

func (c *Client) Cities(ctx context.Context, sessionID, stateID string) ([]GeoRef, error) {
	var out struct {
		Cities []GeoRef `json:"cities"`
	}
	q := url.Values{"stateId": {stateID}}
	err := c.do(ctx, sessionID, http.MethodGet, "/master/cities", q, nil, &out)
	c.count("geo_cities", err)
	return out.Cities, err
}

func (c *Client) PincodeServiceability(ctx context.Context, sessionID, pincode string) (bool, error) {
	var out struct {
		Prepaid bool `json:"prepaid"`
	}
	err := c.do(ctx, sessionID, http.MethodGet,
		"/logistic_partner/get_pincode_serviceability/"+pincode, nil, nil, &out)
	c.count("serviceability", err)
	return out.Prepaid, err
}

func (c *Client) DeliveryCharge(ctx context.Context, sessionID, pincode string) (int64, error) {
	var out struct {
		TotalDeliveryCharge int64 `json:"totalDeliveryCharge"`
	}
	err := c.do(ctx, sessionID, http.MethodGet,
		"/logistic_partner/get_delivery_charge/"+pincode, nil, nil, &out)
	c.count("delivery_charge", err)
	return out.TotalDeliveryCharge, err
}

func (c *Client) CreateOrder(ctx context.Context, sessionID string, req OrderCreateRequest) (OrderCreateResponse, error) {
	var out OrderCreateResponse
	err := c.do(ctx, sessionID, http.MethodPost, "/sell_order/create", nil, req, &out)
	c.count("order_create", err)
	return out, err
}

func (c *Client) VerifyPayment(ctx context.Context, sessionID string, req VerifyPaymentRequest) (VerifyPaymentResponse, error) {
	var out VerifyPaymentResponse
	err := c.do(ctx, sessionID, http.MethodPost, "/sell_order/verify_payment", nil, req, &out)
	c.count("verify_payment", err)
	return out, err
}

func (c *Client) ListFavourites(ctx context.Context, sessionID, customerID string) ([]Favourite, error) {
	var out struct {
		Favourites []Favourite `json:"favourites"`
	}
	err := c.do(ctx, sessionID, http.MethodGet, "/customer/"+customerID+"/favourites", nil, nil, &out)
	c.count("favourites_list", err)
	return out.Favourites, err
}

func (c *Client) AddFavourite(ctx context.Context, sessionID, customerID, productID string) error {
	body := map[string]string{"productId": productID}
	err := c.do(ctx, sessionID, http.MethodPost, "/customer/"+customerID+"/favourites", nil, body, nil)
	c.count("favourites_add", err)
	return err
}

func (c *Client) RemoveFavourite(ctx context.Context, sessionID, customerID, favouriteID string) error {
	err := c.do(ctx, sessionID, http.MethodDelete,
		"/customer/"+customerID+"/favourites/"+favouriteID, nil, nil, nil)
	c.count("favourites_remove", err)
	return err
}

func (c *Client) Logout(ctx context.Context, sessionID string) error {
	err := c.do(ctx, sessionID, http.MethodPost, "/customer/logout", nil, nil, nil)
	c.count("logout", err)
	return err
}
