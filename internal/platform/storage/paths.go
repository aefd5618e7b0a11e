package storage

import (
	"fmt"
	"strings"
)

// AssetKind identifies the storage layout used for a class of catalogue assets.
type AssetKind string

const (
	KindProductImage AssetKind = "product-image"
	KindDesignSketch AssetKind = "design-sketch"
	KindFabricSwatch AssetKind = "fabric-swatch"
)

// PathParams provide the identifiers needed to compose storage object keys.
type PathParams struct {
	ProductID string
	DesignID  string
	FabricID  string
	FileName  string
}

// ObjectPath resolves the canonical storage object path for the given asset kind.
func ObjectPath(kind AssetKind, params PathParams) (string, error) {
	switch kind {
	case KindProductImage:
		return productImagePath(params)
	case KindDesignSketch:
		return designSketchPath(params)
	case KindFabricSwatch:
		return fabricSwatchPath(params)
	default:
		return "", fmt.Errorf("storage: unsupported asset kind %q", kind)
	}
}

func productImagePath(params PathParams) (string, error) {
	productID, err := validateSegment("productID", params.ProductID)
	if err != nil {
		return "", err
	}
	fileName, err := validateFileName(params.FileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("assets/products/%s/images/%s", productID, fileName), nil
}

func designSketchPath(params PathParams) (string, error) {
	designID, err := validateSegment("designID", params.DesignID)
	if err != nil {
		return "", err
	}
	fileName, err := validateFileName(params.FileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("assets/designs/%s/sketches/%s", designID, fileName), nil
}

func fabricSwatchPath(params PathParams) (string, error) {
	fabricID, err := validateSegment("fabricID", params.FabricID)
	if err != nil {
		return "", err
	}
	fileName, err := validateFileName(params.FileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("assets/fabrics/%s/swatches/%s", fabricID, fileName), nil
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: %s contains invalid path characters", name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: %s contains invalid traversal sequence", name)
	}
	return value, nil
}

func validateFileName(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: fileName is required")
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: fileName contains invalid path characters")
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: fileName contains invalid traversal sequence")
	}
	return value, nil
}
