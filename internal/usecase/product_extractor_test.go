package usecase

import "testing"

func TestExtractProductName(t *testing.T) {
	extractor := NewProductExtractor(nil)

	tests := []struct {
		name   string
		query  string
		want   string
		wantOK bool
	}{
		{"berapa harga", "berapa harga Ruijie RAP2200?", "ruijie rap2200", true},
		{"price of with product qualifier", "What is the price of product Cisco Catalyst 2960.", "cisco catalyst 2960", true},
		{"cek harga", "tolong cek harga Mikrotik hAP ac2!", "mikrotik hap ac2", true},
		{"cari", "cari Ubiquiti UniFi U6 Lite", "ubiquiti unifi u6 lite", true},
		{"please find", "please find barang TP-Link Archer C6, thanks", "tp-link archer c6", true},
		{"beli", "saya ingin membeli Switch TP-Link TL-SG108", "switch tp-link tl-sg108", true},
		{"buy", "I want to buy Aruba AP-505", "aruba ap-505", true},
		{"dari", "penawaran dari Summary Solution untuk kabel LAN", "summary solution untuk kabel lan", true},
		{"label", "Mohon dicek.\nProduct: Ruijie RG-ES205GC\nQty: 2", "ruijie rg-es205gc", true},
		{"nama produk label", "nama produk: Fortinet FortiGate 40F", "fortinet fortigate 40f", true},
		{"harga pattern wins over beli", "beli dengan harga Ruijie RAP2200?", "ruijie rap2200", true},
		{"empty trigger capture falls through", "harga ? beli Switch 8 port", "switch 8 port", true},
		{"no product", "halo, apa kabar?", "", false},
		{"empty", "   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractor.ExtractProductName(tt.query)
			if ok != tt.wantOK {
				t.Fatalf("ExtractProductName(%q) ok = %v, want %v", tt.query, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ExtractProductName(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}
