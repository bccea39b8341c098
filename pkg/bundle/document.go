// Package bundle reads and writes package bundles: curated package lists
// that can be shared between machines and installed in one go.
package bundle

import (
	"encoding/xml"

	"unipkg/pkg/manager"
)

// ExportVersion is the bundle format version written by Export.
const ExportVersion = 2.0

// IncompatibleInfo is the notice stored next to incompatible packages.
const IncompatibleInfo = "Incompatible packages cannot be installed from unipkg, but they have been listed here for logging purposes."

// Document is the serialized form of a bundle.
type Document struct {
	XMLName                  xml.Name             `json:"-" yaml:"-" xml:"bundle"`
	ExportVersion            float64              `json:"export_version" yaml:"export_version" xml:"export_version"`
	Packages                 []ValidRecord        `json:"packages" yaml:"packages" xml:"packages>package"`
	IncompatiblePackagesInfo string               `json:"incompatible_packages_info" yaml:"incompatible_packages_info" xml:"incompatible_packages_info"`
	IncompatiblePackages     []IncompatibleRecord `json:"incompatible_packages" yaml:"incompatible_packages" xml:"incompatible_packages>package"`
}

// UpdatesOptions records whether updates of a package are ignored.
type UpdatesOptions struct {
	UpdatesIgnored bool   `json:"UpdatesIgnored" yaml:"UpdatesIgnored" xml:"UpdatesIgnored"`
	IgnoredVersion string `json:"IgnoredVersion" yaml:"IgnoredVersion" xml:"IgnoredVersion"`
}

// ValidRecord is a package that can be installed again from the bundle.
type ValidRecord struct {
	ID                  string                      `json:"Id" yaml:"Id" xml:"Id"`
	Name                string                      `json:"Name" yaml:"Name" xml:"Name"`
	Version             string                      `json:"Version" yaml:"Version" xml:"Version"`
	Source              string                      `json:"Source" yaml:"Source" xml:"Source"`
	ManagerName         string                      `json:"ManagerName" yaml:"ManagerName" xml:"ManagerName"`
	InstallationOptions manager.InstallationOptions `json:"InstallationOptions" yaml:"InstallationOptions" xml:"InstallationOptions"`
	Updates             UpdatesOptions              `json:"Updates" yaml:"Updates" xml:"Updates"`
}

// IncompatibleRecord is a package listed for reference only. Source is
// "manager: source", or just the manager.
type IncompatibleRecord struct {
	ID      string `json:"Id" yaml:"Id" xml:"Id"`
	Name    string `json:"Name" yaml:"Name" xml:"Name"`
	Version string `json:"Version" yaml:"Version" xml:"Version"`
	Source  string `json:"Source" yaml:"Source" xml:"Source"`
}

// NewDocument returns an empty bundle document.
func NewDocument() Document {
	return Document{
		ExportVersion:            ExportVersion,
		Packages:                 []ValidRecord{},
		IncompatiblePackagesInfo: IncompatibleInfo,
		IncompatiblePackages:     []IncompatibleRecord{},
	}
}

// Export builds a document from items, in order. Valid items become
// package records; invalid ones are listed as incompatible.
func Export(items []Item) Document {
	doc := NewDocument()
	for _, item := range items {
		switch it := item.(type) {
		case *ImportedPackage:
			doc.Packages = append(doc.Packages, it.Record())
		case *InvalidImportedPackage:
			doc.IncompatiblePackages = append(doc.IncompatiblePackages, it.Record())
		}
	}
	return doc
}

// Resolve turns a document back into items against the live backends.
// Records whose manager is not registered become invalid items.
func Resolve(doc Document, reg *manager.Registry) []Item {
	items := make([]Item, 0, len(doc.Packages)+len(doc.IncompatiblePackages))

	for _, rec := range doc.Packages {
		m, err := reg.Lookup(rec.ManagerName)
		if err != nil {
			items = append(items, &InvalidImportedPackage{
				name:    rec.Name,
				id:      rec.ID,
				version: rec.Version,
				source:  sourceString(rec.ManagerName, rec.Source),
			})
			continue
		}
		items = append(items, FromRecord(rec, m))
	}

	for _, rec := range doc.IncompatiblePackages {
		items = append(items, NewInvalidImportedPackage(rec))
	}
	return items
}

func sourceString(managerName, source string) string {
	if source == "" {
		return managerName
	}
	return managerName + ": " + source
}
