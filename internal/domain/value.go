package domain

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image/png"
)

// ValueType — тег типа значения, которым нода объявляет свои входы и выходы.
type ValueType string

const (
	// TypeString — строка.
	TypeString ValueType = "STRING"

	// TypeInt — целое число.
	TypeInt ValueType = "INT"

	// TypeFloat — число с плавающей точкой.
	TypeFloat ValueType = "FLOAT"

	// TypeBoolean — логическое значение.
	TypeBoolean ValueType = "BOOLEAN"

	// TypeImage — изображение (*Image).
	TypeImage ValueType = "IMAGE"

	// TypeAny — любой тип; отключает проверку совместимости.
	TypeAny ValueType = "*"
)

// Accepts проверяет, можно ли подать значение типа actual на вход типа t.
// Пустой тип и TypeAny совместимы с чем угодно; INT допускается на вход FLOAT.
func (t ValueType) Accepts(actual ValueType) bool {
	if t == "" || t == TypeAny || actual == "" || actual == TypeAny {
		return true
	}
	if t == actual {
		return true
	}
	return t == TypeFloat && actual == TypeInt
}

// Value — выход ноды с тегом типа.
type Value struct {
	// Type — объявленный тип значения.
	Type ValueType `json:"type"`

	// Data — само значение.
	Data any `json:"data"`
}

// NewValue создаёт значение с тегом типа.
func NewValue(t ValueType, data any) Value {
	return Value{Type: t, Data: data}
}

// ErrInvalidPNG — данные не являются PNG-изображением.
var ErrInvalidPNG = errors.New("invalid png data")

// Image — изображение, передаваемое между нодами.
//
// Хранится в виде закодированного PNG: ноды обмениваются готовыми байтами,
// а транспорт сериализует их в data URI.
type Image struct {
	// PNG — закодированные байты изображения.
	PNG []byte

	// Width, Height — размеры, прочитанные из заголовка PNG.
	Width  int
	Height int
}

// NewImageFromPNG проверяет заголовок PNG и создаёт Image.
func NewImageFromPNG(data []byte) (*Image, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Join(ErrInvalidPNG, err)
	}
	return &Image{PNG: data, Width: cfg.Width, Height: cfg.Height}, nil
}

// DataURI возвращает изображение в виде "data:image/png;base64,...".
func (img *Image) DataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(img.PNG)
}

// MarshalJSON сериализует изображение как data URI.
func (img *Image) MarshalJSON() ([]byte, error) {
	return json.Marshal(img.DataURI())
}
