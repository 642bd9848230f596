package namecheap

import "encoding/xml"

// apiResponse is the provider's XML envelope. Status is "OK" or "ERROR";
// on error the Errors list carries numbered messages.
type apiResponse struct {
	XMLName xml.Name `xml:"ApiResponse"`
	Status  string   `xml:"Status,attr"`
	Errors  struct {
		Errors []apiError `xml:"Error"`
	} `xml:"Errors"`
	CommandResponse commandResponse `xml:"CommandResponse"`
}

type apiError struct {
	Number  string `xml:"Number,attr"`
	Message string `xml:",chardata"`
}

type commandResponse struct {
	DomainCreateResult         *domainCreateResult         `xml:"DomainCreateResult"`
	DomainTransferCreateResult *domainTransferCreateResult `xml:"DomainTransferCreateResult"`
	DomainCheckResults         []domainCheckResult         `xml:"DomainCheckResult"`
	PricingResult              pricingResult               `xml:"UserGetPricingResult"`
}

type domainCreateResult struct {
	Domain        string `xml:"Domain,attr"`
	Registered    bool   `xml:"Registered,attr"`
	TransactionID string `xml:"TransactionID,attr"`
	ChargedAmount string `xml:"ChargedAmount,attr"`
}

type domainTransferCreateResult struct {
	Domain     string `xml:"DomainName,attr"`
	Transfer   bool   `xml:"Transfer,attr"`
	TransferID string `xml:"TransferID,attr"`
}

type domainCheckResult struct {
	Domain        string `xml:"Domain,attr"`
	Available     bool   `xml:"Available,attr"`
	IsPremiumName bool   `xml:"IsPremiumName,attr"`
}

type pricingResult struct {
	ProductTypes []struct {
		Name       string `xml:"Name,attr"`
		Categories []struct {
			Name     string `xml:"Name,attr"`
			Products []struct {
				Name   string `xml:"Name,attr"`
				Prices []struct {
					Duration int     `xml:"Duration,attr"`
					Price    float64 `xml:"Price,attr"`
				} `xml:"Price"`
			} `xml:"Product"`
		} `xml:"ProductCategory"`
	} `xml:"ProductType"`
}
