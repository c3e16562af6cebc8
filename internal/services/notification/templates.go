package notification

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"lumen_back_end/internal/models"
)

var funcs = map[string]any{
	"money": func(v float64) string { return formatINR(v) },
	"lineTotal": func(it models.OrderItem) string {
		return formatINR(it.ItemTotal())
	},
	"upper": strings.ToUpper,
	"date": func(t time.Time) string {
		return t.In(ist).Format("02 Jan 2006, 15:04 IST")
	},
	"street": func(a models.ShippingAddress) string {
		if a.Address != "" {
			return a.Address
		}
		return a.Street
	},
	"pin": func(a models.ShippingAddress) string {
		if a.Pincode != "" {
			return a.Pincode
		}
		return a.ZipCode
	},
}

var ist = time.FixedZone("IST", 5*3600+1800)

func formatINR(v float64) string {
	return fmt.Sprintf("₹%.2f", v)
}

const adminHTML = `<div style="font-family: Arial, sans-serif; max-width: 700px; margin: 0 auto;">
  <div style="background-color: #ff6b35; color: white; padding: 20px; text-align: center;">
    <h1 style="margin: 0;">🎉 Nouvelle commande reçue</h1>
  </div>
  <div style="padding: 30px; background-color: #f9f9f9;">
    <h2 style="color: #333;">Commande #{{.OrderNumber}}</h2>
    <p><strong>Date :</strong> {{date .CreatedAt}}</p>
    <p><strong>Paiement :</strong> {{upper (print .PaymentStatus)}} ({{.PaymentID}})</p>
    <p><strong>Statut :</strong> {{upper (print .OrderStatus)}}</p>
    <h3>Client</h3>
    <p>{{.ShippingAddress.Name}}<br/>{{.CustomerEmail}}<br/>{{.ShippingAddress.PhoneNumber}}</p>
    <h3>Adresse de livraison</h3>
    <p>{{street .ShippingAddress}}<br/>{{.ShippingAddress.City}}, {{.ShippingAddress.State}}<br/>{{pin .ShippingAddress}}<br/>{{.ShippingAddress.Country}}</p>
    <h3>Articles</h3>
    <table style="width: 100%; border-collapse: collapse;">
      <tr><th align="left">Produit</th><th>Qté</th><th align="right">Prix</th><th align="right">Total</th></tr>
      {{range .Items}}<tr><td>{{.Name}}</td><td align="center">{{.Quantity}}</td><td align="right">{{money .Price}}</td><td align="right">{{lineTotal .}}</td></tr>
      {{end}}
    </table>
    <p>Sous-total : {{money .Subtotal}}</p>
    {{if gt .PromoCodeDiscount 0.0}}<p style="color: #28a745;">Code promo {{.PromoCode}} : -{{money .PromoCodeDiscount}}</p>{{end}}
    <p>Livraison : {{if eq .ShippingFee 0.0}}OFFERTE{{else}}{{money .ShippingFee}}{{end}}</p>
    <p style="font-size: 18px; font-weight: bold;">Total : {{money .TotalAmount}}</p>
  </div>
</div>`

const adminText = `NOUVELLE COMMANDE
Commande : #{{.OrderNumber}}
Date : {{date .CreatedAt}}
Paiement : {{upper (print .PaymentStatus)}} ({{.PaymentID}})
Client : {{.ShippingAddress.Name}} <{{.CustomerEmail}}> {{.ShippingAddress.PhoneNumber}}
Adresse : {{street .ShippingAddress}}, {{.ShippingAddress.City}}, {{.ShippingAddress.State}} {{pin .ShippingAddress}}, {{.ShippingAddress.Country}}
{{range .Items}}- {{.Name}} x{{.Quantity}} = {{lineTotal .}}
{{end}}Sous-total : {{money .Subtotal}}
{{if gt .PromoCodeDiscount 0.0}}Remise ({{.PromoCode}}) : -{{money .PromoCodeDiscount}}
{{end}}Livraison : {{if eq .ShippingFee 0.0}}OFFERTE{{else}}{{money .ShippingFee}}{{end}}
Total : {{money .TotalAmount}}
`

const customerHTML = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #333;">Merci pour votre commande, {{.ShippingAddress.Name}} !</h2>
  <p>Votre paiement a bien été reçu. Commande <strong>#{{.OrderNumber}}</strong>.</p>
  <table style="width: 100%; border-collapse: collapse;">
    {{range .Items}}<tr><td>{{.Name}} x{{.Quantity}}</td><td align="right">{{lineTotal .}}</td></tr>
    {{end}}
  </table>
  {{if gt .PromoCodeDiscount 0.0}}<p>Remise : -{{money .PromoCodeDiscount}}</p>{{end}}
  <p>Livraison : {{if eq .ShippingFee 0.0}}OFFERTE{{else}}{{money .ShippingFee}}{{end}}</p>
  <p style="font-size: 18px; font-weight: bold;">Total payé : {{money .TotalAmount}}</p>
  <p>Livraison à : {{street .ShippingAddress}}, {{.ShippingAddress.City}} {{pin .ShippingAddress}}</p>
  <p style="color: #555;">L'équipe Lumen</p>
</div>`

const customerText = `Merci pour votre commande, {{.ShippingAddress.Name}} !
Commande #{{.OrderNumber}}
{{range .Items}}- {{.Name}} x{{.Quantity}} = {{lineTotal .}}
{{end}}Total payé : {{money .TotalAmount}}
L'équipe Lumen
`

var (
	adminHTMLTmpl    = htmltemplate.Must(htmltemplate.New("admin").Funcs(funcs).Parse(adminHTML))
	adminTextTmpl    = texttemplate.Must(texttemplate.New("admin").Funcs(funcs).Parse(adminText))
	customerHTMLTmpl = htmltemplate.Must(htmltemplate.New("customer").Funcs(funcs).Parse(customerHTML))
	customerTextTmpl = texttemplate.Must(texttemplate.New("customer").Funcs(funcs).Parse(customerText))
)

func render(html *htmltemplate.Template, text *texttemplate.Template, order models.Order) (string, string, error) {
	var hb, tb bytes.Buffer
	if err := html.Execute(&hb, order); err != nil {
		return "", "", err
	}
	if err := text.Execute(&tb, order); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}

// AdminOrderPlaced construit l'email envoyé à l'administrateur.
func AdminOrderPlaced(to string, order models.Order) (Message, error) {
	html, text, err := render(adminHTMLTmpl, adminTextTmpl, order)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Nouvelle commande #" + order.OrderNumber, HTML: html, Text: text}, nil
}

// CustomerOrderConfirmed construit l'email de confirmation envoyé au client.
func CustomerOrderConfirmed(order models.Order) (Message, error) {
	html, text, err := render(customerHTMLTmpl, customerTextTmpl, order)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      order.CustomerEmail,
		Subject: "Confirmation de commande #" + order.OrderNumber + " - Lumen",
		HTML:    html,
		Text:    text,
	}, nil
}
