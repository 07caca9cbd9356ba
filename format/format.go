// Package format defines the parquet metadata structures and their Thrift
// Compact Protocol codec.
//
// Decoding is zero-copy where possible: string and byte fields of decoded
// structures reference the input buffer, which must remain valid for the
// lifetime of the decoded metadata.
package format

import "fmt"

// Type is the physical type of column values.
type Type int32

const (
	Boolean           Type = 0
	Int32             Type = 1
	Int64             Type = 2
	Int96             Type = 3
	Float             Type = 4
	Double            Type = 5
	ByteArray         Type = 6
	FixedLenByteArray Type = 7
)

func (t Type) String() string {
	switch t {
	case Boolean:
		return "BOOLEAN"
	case Int32:
		return "INT32"
	case Int64:
		return "INT64"
	case Int96:
		return "INT96"
	case Float:
		return "FLOAT"
	case Double:
		return "DOUBLE"
	case ByteArray:
		return "BYTE_ARRAY"
	case FixedLenByteArray:
		return "FIXED_LEN_BYTE_ARRAY"
	default:
		return fmt.Sprintf("Type(%d)", int32(t))
	}
}

// Encoding identifies the encoding of a value or level stream.
type Encoding int32

const (
	Plain                Encoding = 0
	PlainDictionary      Encoding = 2
	RLE                  Encoding = 3
	BitPacked            Encoding = 4
	DeltaBinaryPacked    Encoding = 5
	DeltaLengthByteArray Encoding = 6
	DeltaByteArray       Encoding = 7
	RLEDictionary        Encoding = 8
	ByteStreamSplit      Encoding = 9
)

func (e Encoding) String() string {
	switch e {
	case Plain:
		return "PLAIN"
	case PlainDictionary:
		return "PLAIN_DICTIONARY"
	case RLE:
		return "RLE"
	case BitPacked:
		return "BIT_PACKED"
	case DeltaBinaryPacked:
		return "DELTA_BINARY_PACKED"
	case DeltaLengthByteArray:
		return "DELTA_LENGTH_BYTE_ARRAY"
	case DeltaByteArray:
		return "DELTA_BYTE_ARRAY"
	case RLEDictionary:
		return "RLE_DICTIONARY"
	case ByteStreamSplit:
		return "BYTE_STREAM_SPLIT"
	default:
		return fmt.Sprintf("Encoding(%d)", int32(e))
	}
}

// CompressionCodec identifies the compression applied to page payloads.
type CompressionCodec int32

const (
	Uncompressed CompressionCodec = 0
	Snappy       CompressionCodec = 1
	Gzip         CompressionCodec = 2
	Lzo          CompressionCodec = 3
	Brotli       CompressionCodec = 4
	Lz4          CompressionCodec = 5
	Zstd         CompressionCodec = 6
	Lz4Raw       CompressionCodec = 7
)

func (c CompressionCodec) String() string {
	switch c {
	case Uncompressed:
		return "UNCOMPRESSED"
	case Snappy:
		return "SNAPPY"
	case Gzip:
		return "GZIP"
	case Lzo:
		return "LZO"
	case Brotli:
		return "BROTLI"
	case Lz4:
		return "LZ4"
	case Zstd:
		return "ZSTD"
	case Lz4Raw:
		return "LZ4_RAW"
	default:
		return fmt.Sprintf("CompressionCodec(%d)", int32(c))
	}
}

// PageType identifies the kind of page found in a column chunk.
type PageType int32

const (
	DataPage       PageType = 0
	IndexPage      PageType = 1
	DictionaryPage PageType = 2
	DataPageV2     PageType = 3
)

func (p PageType) String() string {
	switch p {
	case DataPage:
		return "DATA_PAGE"
	case IndexPage:
		return "INDEX_PAGE"
	case DictionaryPage:
		return "DICTIONARY_PAGE"
	case DataPageV2:
		return "DATA_PAGE_V2"
	default:
		return fmt.Sprintf("PageType(%d)", int32(p))
	}
}

// FieldRepetitionType describes the presence rules of a schema element.
type FieldRepetitionType int32

const (
	Required FieldRepetitionType = 0
	Optional FieldRepetitionType = 1
	Repeated FieldRepetitionType = 2
)

func (t FieldRepetitionType) String() string {
	switch t {
	case Required:
		return "REQUIRED"
	case Optional:
		return "OPTIONAL"
	case Repeated:
		return "REPEATED"
	default:
		return fmt.Sprintf("FieldRepetitionType(%d)", int32(t))
	}
}

// ConvertedType is the deprecated pre-LogicalType annotation; parsed for
// interoperability with older writers.
type ConvertedType int32

const (
	UTF8ConvertedType ConvertedType = 0
	MapConvertedType  ConvertedType = 1
	DecimalConverted  ConvertedType = 5
	DateConverted     ConvertedType = 6
)

// Logical type variants. Empty structs mark parameterless annotations; the
// pointer that is non-nil in LogicalType is the active variant.
type (
	StringType  struct{}
	MapType     struct{}
	ListType    struct{}
	EnumType    struct{}
	DateType    struct{}
	NullType    struct{}
	JsonType    struct{}
	BsonType    struct{}
	UUIDType    struct{}
	Float16Type struct{}

	MilliSeconds struct{}
	MicroSeconds struct{}
	NanoSeconds  struct{}
)

type DecimalType struct {
	Scale     int32
	Precision int32
}

type TimeUnit struct {
	Millis *MilliSeconds
	Micros *MicroSeconds
	Nanos  *NanoSeconds
}

type TimeType struct {
	IsAdjustedToUTC bool
	Unit            TimeUnit
}

type TimestampType struct {
	IsAdjustedToUTC bool
	Unit            TimeUnit
}

type IntType struct {
	BitWidth int8
	IsSigned bool
}

// LogicalType is a tagged union keyed by which variant pointer is non-nil.
type LogicalType struct {
	UTF8      *StringType
	Map       *MapType
	List      *ListType
	Enum      *EnumType
	Decimal   *DecimalType
	Date      *DateType
	Time      *TimeType
	Timestamp *TimestampType
	Integer   *IntType
	Unknown   *NullType
	Json      *JsonType
	Bson      *BsonType
	UUID      *UUIDType
	Float16   *Float16Type
}

func (t *LogicalType) String() string {
	switch {
	case t == nil:
		return ""
	case t.UTF8 != nil:
		return "STRING"
	case t.Map != nil:
		return "MAP"
	case t.List != nil:
		return "LIST"
	case t.Enum != nil:
		return "ENUM"
	case t.Decimal != nil:
		return fmt.Sprintf("DECIMAL(%d,%d)", t.Decimal.Precision, t.Decimal.Scale)
	case t.Date != nil:
		return "DATE"
	case t.Time != nil:
		return "TIME"
	case t.Timestamp != nil:
		return "TIMESTAMP"
	case t.Integer != nil:
		return fmt.Sprintf("INT(%d,%t)", t.Integer.BitWidth, t.Integer.IsSigned)
	case t.Unknown != nil:
		return "NULL"
	case t.Json != nil:
		return "JSON"
	case t.Bson != nil:
		return "BSON"
	case t.UUID != nil:
		return "UUID"
	case t.Float16 != nil:
		return "FLOAT16"
	default:
		return ""
	}
}

// SchemaElement is one node of the flat, depth-first schema list. Group
// nodes carry NumChildren; leaves carry a Type.
type SchemaElement struct {
	Type           *Type
	TypeLength     *int32
	RepetitionType *FieldRepetitionType
	Name           string
	NumChildren    *int32
	ConvertedType  *ConvertedType
	Scale          *int32
	Precision      *int32
	FieldID        int32
	LogicalType    *LogicalType
}

type Statistics struct {
	Max           []byte
	Min           []byte
	NullCount     int64
	DistinctCount int64
	MaxValue      []byte
	MinValue      []byte
}

type KeyValue struct {
	Key   string
	Value string
}

type SortingColumn struct {
	ColumnIdx  int32
	Descending bool
	NullsFirst bool
}

type PageEncodingStats struct {
	PageType PageType
	Encoding Encoding
	Count    int32
}

type ColumnMetaData struct {
	Type                  Type
	Encoding              []Encoding
	PathInSchema          []string
	Codec                 CompressionCodec
	NumValues             int64
	TotalUncompressedSize int64
	TotalCompressedSize   int64
	KeyValueMetadata      []KeyValue
	DataPageOffset        int64
	IndexPageOffset       int64
	DictionaryPageOffset  int64
	Statistics            Statistics
	EncodingStats         []PageEncodingStats
	BloomFilterOffset     int64
	BloomFilterLength     int32
}

type ColumnChunk struct {
	FilePath          string
	FileOffset        int64
	MetaData          ColumnMetaData
	OffsetIndexOffset int64
	OffsetIndexLength int32
	ColumnIndexOffset int64
	ColumnIndexLength int32
}

type RowGroup struct {
	Columns             []ColumnChunk
	TotalByteSize       int64
	NumRows             int64
	SortingColumns      []SortingColumn
	FileOffset          int64
	TotalCompressedSize int64
	Ordinal             int16
}

type FileMetaData struct {
	Version          int32
	Schema           []SchemaElement
	NumRows          int64
	RowGroups        []RowGroup
	KeyValueMetadata []KeyValue
	CreatedBy        string
}

type DataPageHeader struct {
	NumValues               int32
	Encoding                Encoding
	DefinitionLevelEncoding Encoding
	RepetitionLevelEncoding Encoding
	Statistics              Statistics
}

type DictionaryPageHeader struct {
	NumValues int32
	Encoding  Encoding
	IsSorted  bool
}

type DataPageHeaderV2 struct {
	NumValues                  int32
	NumNulls                   int32
	NumRows                    int32
	Encoding                   Encoding
	DefinitionLevelsByteLength int32
	RepetitionLevelsByteLength int32
	IsCompressed               bool
	Statistics                 Statistics
}

// PageHeader precedes every page in a column chunk. Exactly one of the
// nested header pointers matching Type is expected to be set.
type PageHeader struct {
	Type                 PageType
	UncompressedPageSize int32
	CompressedPageSize   int32
	CRC                  int32
	HasCRC               bool
	DataPageHeader       *DataPageHeader
	DictionaryPageHeader *DictionaryPageHeader
	DataPageHeaderV2     *DataPageHeaderV2
}

// NumValues returns the value count declared by whichever nested header is
// present.
func (h *PageHeader) NumValues() int32 {
	switch {
	case h.DataPageHeader != nil:
		return h.DataPageHeader.NumValues
	case h.DataPageHeaderV2 != nil:
		return h.DataPageHeaderV2.NumValues
	case h.DictionaryPageHeader != nil:
		return h.DictionaryPageHeader.NumValues
	default:
		return 0
	}
}
