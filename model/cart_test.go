package model

import (
	"reflect"
	"testing"
)

func sampleCart() Cart {
	return Cart{
		{Product: Product{ID: 1, Name: "Tênis de Caminhada", Price: 179.9, ImageURL: "https://img/1.jpg"}, Amount: 2},
		{Product: Product{ID: 3, Name: "Tênis Adidas", Price: 219.9, ImageURL: "https://img/3.jpg"}, Amount: 1},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := sampleCart()

	data, err := Encode(c)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, c) {
		t.Fatalf("round trip mismatch. got %+v, want %+v", got, c)
	}
}

func TestEncodeIsFlatArray(t *testing.T) {
	data, err := Encode(Cart{{Product: Product{ID: 7, Name: "x", Price: 1.5, ImageURL: "u"}, Amount: 3}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `[{"id":7,"name":"x","price":1.5,"imageUrl":"u","amount":3}]`
	if data != want {
		t.Fatalf("unexpected encoding. got %s, want %s", data, want)
	}

	empty, _ := Encode(nil)
	if empty != "[]" {
		t.Fatalf("expected nil cart to encode as [], got %s", empty)
	}
}

func TestDecodeRejectsBrokenInvariants(t *testing.T) {
	cases := map[string]string{
		"not json":     `{oops`,
		"zero amount":  `[{"id":1,"amount":0}]`,
		"duplicate id": `[{"id":1,"amount":1},{"id":1,"amount":2}]`,
		"wrong shape":  `{"id":1}`,
	}
	for name, data := range cases {
		if _, err := Decode(data); err == nil {
			t.Fatalf("%s: expected decode error", name)
		}
	}

	c, err := Decode("null")
	if err != nil || c == nil || len(c) != 0 {
		t.Fatalf("expected null to decode as empty cart, got %v %v", c, err)
	}
}

func TestWithAmountAndWithout(t *testing.T) {
	c := sampleCart()

	updated := c.WithAmount(1, 5, Product{})
	if updated[0].Amount != 5 || c[0].Amount != 2 {
		t.Fatalf("WithAmount must copy: original %d, updated %d", c[0].Amount, updated[0].Amount)
	}

	added := c.WithAmount(9, 1, Product{ID: 9, Name: "new"})
	if len(added) != 3 || added[2].ID != 9 || added[2].Amount != 1 {
		t.Fatalf("expected appended line, got %+v", added)
	}
	if len(c) != 2 {
		t.Fatalf("original cart mutated: %+v", c)
	}

	removed := c.Without(1)
	if len(removed) != 1 || removed[0].ID != 3 {
		t.Fatalf("unexpected cart after Without: %+v", removed)
	}
}

func TestSizeAndSubtotal(t *testing.T) {
	c := sampleCart()
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
	want := 179.9*2 + 219.9
	if got := c.Subtotal(); got < want-0.0001 || got > want+0.0001 {
		t.Fatalf("expected subtotal %v, got %v", want, got)
	}
	if _, _, ok := c.Find(42); ok {
		t.Fatalf("did not expect to find product 42")
	}
}
