package provider

// seedProduct is one entry of a retailer's fixed product seed list. The
// mock provider serves these verbatim; the browser provider uses the URLs
// as its visit list and verifies live state.
type seedProduct struct {
	Name            string
	SKU             string
	URL             string
	Category        string
	ClearancePrice  float64
	WasPrice        float64
	InStock         bool
	DeliveryMessage string
	IsOnClearance   bool
	PriceSuppressed bool
	InStorePurchase bool
}

var homeDepotSeeds = []seedProduct{
	{
		Name:            "RYOBI ONE+ 18V Cordless Drill/Driver Kit",
		SKU:             "1001656834",
		URL:             "https://www.homedepot.com/p/1001656834",
		Category:        "tools",
		ClearancePrice:  49.00,
		WasPrice:        99.00,
		InStock:         true,
		DeliveryMessage: "Free delivery",
		IsOnClearance:   true,
		InStorePurchase: true,
	},
	{
		Name:            "Husky 52 in. 9-Drawer Mobile Workbench",
		SKU:             "1003082893",
		URL:             "https://www.homedepot.com/p/1003082893",
		Category:        "storage",
		ClearancePrice:  398.00,
		WasPrice:        598.00,
		InStock:         true,
		DeliveryMessage: "Store pickup only",
		IsOnClearance:   true,
		InStorePurchase: true,
	},
	{
		Name:           "Milwaukee M18 FUEL Circular Saw (Tool-Only)",
		SKU:            "1004142289",
		URL:            "https://www.homedepot.com/p/1004142289",
		Category:       "tools",
		ClearancePrice: 199.00,
		WasPrice:       229.00,
		InStock:        true,
		IsOnClearance:  false,
	},
	{
		Name:            "Hampton Bay 7-Piece Patio Dining Set",
		SKU:             "1005674521",
		URL:             "https://www.homedepot.com/p/1005674521",
		Category:        "outdoor",
		ClearancePrice:  349.00,
		WasPrice:        699.00,
		InStock:         false,
		DeliveryMessage: "Out of stock nearby",
		IsOnClearance:   true,
	},
	{
		Name:            "LG 4.5 cu. ft. Front Load Washer",
		SKU:             "1006234178",
		URL:             "https://www.homedepot.com/p/1006234178",
		Category:        "appliances",
		ClearancePrice:  0,
		WasPrice:        898.00,
		InStock:         true,
		IsOnClearance:   true,
		PriceSuppressed: true,
		InStorePurchase: true,
	},
	{
		Name:           "DEWALT 20V MAX Battery 2-Pack",
		SKU:            "1007118854",
		URL:            "https://www.homedepot.com/p/1007118854",
		Category:       "tools",
		ClearancePrice: 119.00,
		WasPrice:       119.00,
		InStock:        true,
		IsOnClearance:  false,
	},
	{
		Name:            "Vigoro 0.5 cu. ft. River Rock Bagged",
		SKU:             "1008812341",
		URL:             "https://www.homedepot.com/p/1008812341",
		Category:        "garden",
		ClearancePrice:  2.50,
		WasPrice:        4.98,
		InStock:         true,
		DeliveryMessage: "Store pickup only",
		IsOnClearance:   true,
		InStorePurchase: true,
	},
}

var aceSeeds = []seedProduct{
	{
		Name:            "Craftsman 230-Piece Mechanics Tool Set",
		SKU:             "2809791",
		URL:             "https://www.acehardware.com/p/2809791",
		Category:        "tools",
		ClearancePrice:  99.99,
		WasPrice:        189.99,
		InStock:         true,
		DeliveryMessage: "Free store pickup",
		IsOnClearance:   true,
		InStorePurchase: true,
	},
	{
		Name:           "Weber Spirit II E-210 Gas Grill",
		SKU:            "8028477",
		URL:            "https://www.acehardware.com/p/8028477",
		Category:       "outdoor",
		ClearancePrice: 399.00,
		WasPrice:       449.00,
		InStock:        true,
		IsOnClearance:  false,
	},
	{
		Name:            "YETI Rambler 26 oz Bottle",
		SKU:             "8070315",
		URL:             "https://www.acehardware.com/p/8070315",
		Category:        "outdoor",
		ClearancePrice:  24.99,
		WasPrice:        40.00,
		InStock:         true,
		DeliveryMessage: "Free store pickup",
		IsOnClearance:   true,
	},
	{
		Name:           "Ace LED 60W Equivalent Bulb 4-Pack",
		SKU:            "3566662",
		URL:            "https://www.acehardware.com/p/3566662",
		Category:       "electrical",
		ClearancePrice: 6.99,
		WasPrice:       12.99,
		InStock:        true,
		IsOnClearance:  true,
	},
	{
		Name:           "Scotts Turf Builder 12.5 lb",
		SKU:            "7135878",
		URL:            "https://www.acehardware.com/p/7135878",
		Category:       "garden",
		ClearancePrice: 21.99,
		WasPrice:       21.99,
		InStock:        false,
		IsOnClearance:  false,
	},
}

// seedsFor returns the fixed seed list for a retailer. Unknown retailers
// have no seeds, which yields empty scans rather than errors.
func seedsFor(retailer string) []seedProduct {
	switch retailer {
	case "home-depot":
		return homeDepotSeeds
	case "ace-hardware":
		return aceSeeds
	default:
		return nil
	}
}
