package gatt

import "time"

// This file includes constants from the Bluetooth assigned numbers.

var (
	attrPrimaryServiceUUID   = UUID16(0x2800)
	attrSecondaryServiceUUID = UUID16(0x2801)
	attrIncludeUUID          = UUID16(0x2802)
	attrCharacteristicUUID   = UUID16(0x2803)

	attrExtendedPropertiesUUID         = UUID16(0x2900)
	attrUserDescriptionUUID            = UUID16(0x2901)
	attrClientCharacteristicConfigUUID = UUID16(0x2902)
	attrServerCharacteristicConfigUUID = UUID16(0x2903)
	attrPresentationFormatUUID         = UUID16(0x2904)
	attrAggregateFormatUUID            = UUID16(0x2905)
	attrValidRangeUUID                 = UUID16(0x2906)
)

// Exported aliases of the attribute type UUIDs, for callers that
// inspect a Store directly.
var (
	PrimaryServiceUUID             = attrPrimaryServiceUUID
	SecondaryServiceUUID           = attrSecondaryServiceUUID
	IncludeUUID                    = attrIncludeUUID
	CharacteristicUUID             = attrCharacteristicUUID
	ClientCharacteristicConfigUUID = attrClientCharacteristicConfigUUID

	GAPUUID  = UUID16(0x1800) // Generic Access service
	GATTUUID = UUID16(0x1801) // Generic Attribute service
)

// descNames names the descriptor types in table dumps.
var descNames = map[UUID]string{
	attrExtendedPropertiesUUID:         "extended properties",
	attrUserDescriptionUUID:            "user description",
	attrClientCharacteristicConfigUUID: "client config",
	attrServerCharacteristicConfigUUID: "server config",
	attrPresentationFormatUUID:         "presentation format",
	attrAggregateFormatUUID:            "aggregate format",
	attrValidRangeUUID:                 "valid range",
}

// HandleNone marks an absent reference, and an included service whose
// target has not been parsed yet.
const HandleNone uint16 = 0xFFFF

// DefaultMTU is the ATT_MTU of a connection before an exchange.
const DefaultMTU = 23

// MaxMTU is the largest ATT_MTU the codec will negotiate.
const MaxMTU = 517

// DefaultNotifyInterval is the period of the notification alarm.
const DefaultNotifyInterval = 10 * time.Minute
