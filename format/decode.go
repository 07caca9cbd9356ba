package format

import (
	"errors"
	"fmt"

	"github.com/Vitruves/carquet-go/internal/thrift"
)

// Hard ceilings applied to every repeated field before allocating. A four
// byte malicious footer can claim astronomical counts; the ceiling turns
// that into an error instead of an allocation.
const (
	MaxSchemaElements     = 10_000
	MaxRowGroups          = 100_000
	MaxColumnsPerRowGroup = 10_000
	MaxKeyValuePairs      = 10_000
	MaxEncodings          = 100
	MaxPathElements       = 100
	MaxEncodingStats      = 100
)

// ErrCountExceedsLimit reports a repeated field whose declared element count
// exceeds its safety ceiling. The whole metadata parse is aborted.
var ErrCountExceedsLimit = errors.New("format: count exceeds limit")

func expect(d *thrift.Decoder, typ, want thrift.Type, field string) bool {
	if typ != want {
		d.Fail(fmt.Errorf("format: %s: expected %s, got %s", field, want, typ))
		return false
	}
	return true
}

func expectList(d *thrift.Decoder, typ thrift.Type, elem, want thrift.Type, field string) bool {
	if typ != thrift.List {
		d.Fail(fmt.Errorf("format: %s: expected LIST, got %s", field, typ))
		return false
	}
	if elem != want {
		d.Fail(fmt.Errorf("format: %s: expected %s elements, got %s", field, want, elem))
		return false
	}
	return true
}

func checkCount(d *thrift.Decoder, n, limit int, field string) bool {
	if n > limit {
		d.Fail(fmt.Errorf("%w: %s: %d > %d", ErrCountExceedsLimit, field, n, limit))
		return false
	}
	return true
}

func decodeStatistics(d *thrift.Decoder, s *Statistics) {
	d.ReadStructBegin()
	for d.Err() == nil {
		id, typ := d.ReadFieldHeader()
		if typ == thrift.Stop {
			break
		}
		switch id {
		case 1:
			if expect(d, typ, thrift.Binary, "Statistics.Max") {
				s.Max = d.ReadBytes()
			}
		case 2:
			if expect(d, typ, thrift.Binary, "Statistics.Min") {
				s.Min = d.ReadBytes()
			}
		case 3:
			if expect(d, typ, thrift.I64, "Statistics.NullCount") {
				s.NullCount = d.ReadI64()
			}
		case 4:
			if expect(d, typ, thrift.I64, "Statistics.DistinctCount") {
				s.DistinctCount = d.ReadI64()
			}
		case 5:
			if expect(d, typ, thrift.Binary, "Statistics.MaxValue") {
				s.MaxValue = d.ReadBytes()
			}
		case 6:
			if expect(d, typ, thrift.Binary, "Statistics.MinValue") {
				s.MinValue = d.ReadBytes()
			}
		default:
			d.Skip(typ)
		}
	}
	d.ReadStructEnd()
}

func decodeKeyValue(d *thrift.Decoder, kv *KeyValue) {
	d.ReadStructBegin()
	for d.Err() == nil {
		id, typ := d.ReadFieldHeader()
		if typ == thrift.Stop {
			break
		}
		switch id {
		case 1:
			if expect(d, typ, thrift.Binary, "KeyValue.Key") {
				kv.Key = d.ReadString()
			}
		case 2:
			if expect(d, typ, thrift.Binary, "KeyValue.Value") {
				kv.Value = d.ReadString()
			}
		default:
			d.Skip(typ)
		}
	}
	d.ReadStructEnd()
}

func decodeKeyValueList(d *thrift.Decoder, typ thrift.Type, field string) []KeyValue {
	size, elem := d.ReadListHeader()
	if !expectList(d, typ, elem, thrift.Struct, field) {
		return nil
	}
	if !checkCount(d, size, MaxKeyValuePairs, field) {
		return nil
	}
	kvs := make([]KeyValue, size)
	for i := range kvs {
		decodeKeyValue(d, &kvs[i])
	}
	return kvs
}

func decodeSortingColumn(d *thrift.Decoder, sc *SortingColumn) {
	d.ReadStructBegin()
	for d.Err() == nil {
		id, typ := d.ReadFieldHeader()
		if typ == thrift.Stop {
			break
		}
		switch id {
		case 1:
			if expect(d, typ, thrift.I32, "SortingColumn.ColumnIdx") {
				sc.ColumnIdx = d.ReadI32()
			}
		case 2:
			sc.Descending = d.ReadBool()
		case 3:
			sc.NullsFirst = d.ReadBool()
		default:
			d.Skip(typ)
		}
	}
	d.ReadStructEnd()
}

func decodePageEncodingStats(d *thrift.Decoder, pes *PageEncodingStats) {
	d.ReadStructBegin()
	for d.Err() == nil {
		id, typ := d.ReadFieldHeader()
		if typ == thrift.Stop {
			break
		}
		switch id {
		case 1:
			if expect(d, typ, thrift.I32, "PageEncodingStats.PageType") {
				pes.PageType = PageType(d.ReadI32())
			}
		case 2:
			if expect(d, typ, thrift.I32, "PageEncodingStats.Encoding") {
				pes.Encoding = Encoding(d.ReadI32())
			}
		case 3:
			if expect(d, typ, thrift.I32, "PageEncodingStats.Count") {
				pes.Count = d.ReadI32()
			}
		default:
			d.Skip(typ)
		}
	}
	d.ReadStructEnd()
}

// skipEmptyStruct consumes a parameterless logical type variant.
func skipEmptyStruct(d *thrift.Decoder) {
	d.ReadStructBegin()
	for d.Err() == nil {
		_, typ := d.ReadFieldHeader()
		if typ == thrift.Stop {
			break
		}
		d.Skip(typ)
	}
	d.ReadStructEnd()
}

func decodeDecimalType(d *thrift.Decoder, dt *DecimalType) {
	d.ReadStructBegin()
	for d.Err() == nil {
		id, typ := d.ReadFieldHeader()
		if typ == thrift.Stop {
			break
		}
		switch id {
		case 1:
			if expect(d, typ, thrift.I32, "DecimalType.Scale") {
				dt.Scale = d.ReadI32()
			}
		case 2:
			if expect(d, typ, thrift.I32, "DecimalType.Precision") {
				dt.Precision = d.ReadI32()
			}
		default:
			d.Skip(typ)
		}
	}
	d.ReadStructEnd()
}

func decodeTimeUnit(d *thrift.Decoder, tu *TimeUnit) {
	d.ReadStructBegin()
	for d.Err() == nil {
		id, typ := d.ReadFieldHeader()
		if typ == thrift.Stop {
			break
		}
		if typ != thrift.Struct {
			d.Skip(typ)
			continue
		}
		switch id {
		case 1:
			tu.Millis = &MilliSeconds{}
		case 2:
			tu.Micros = &MicroSeconds{}
		case 3:
			tu.Nanos = &NanoSeconds{}
		}
		skipEmptyStruct(d)
	}
	d.ReadStructEnd()
}

func decodeTimeType(d *thrift.Decoder, tt *TimeType) {
	d.ReadStructBegin()
	for d.Err() == nil {
		id, typ := d.ReadFieldHeader()
		if typ == thrift.Stop {
			break
		}
		switch id {
		case 1:
			tt.IsAdjustedToUTC = d.ReadBool()
		case 2:
			if expect(d, typ, thrift.Struct, "TimeType.Unit") {
				decodeTimeUnit(d, &tt.Unit)
			}
		default:
			d.Skip(typ)
		}
	}
	d.ReadStructEnd()
}

func decodeTimestampType(d *thrift.Decoder, tt *TimestampType) {
	d.ReadStructBegin()
	for d.Err() == nil {
		id, typ := d.ReadFieldHeader()
		if typ == thrift.Stop {
			break
		}
		switch id {
		case 1:
			tt.IsAdjustedToUTC = d.ReadBool()
		case 2:
			if expect(d, typ, thrift.Struct, "TimestampType.Unit") {
				decodeTimeUnit(d, &tt.Unit)
			}
		default:
			d.Skip(typ)
		}
	}
	d.ReadStructEnd()
}

func decodeIntType(d *thrift.Decoder, it *IntType) {
	d.ReadStructBegin()
	for d.Err() == nil {
		id, typ := d.ReadFieldHeader()
		if typ == thrift.Stop {
			break
		}
		switch id {
		case 1:
			if expect(d, typ, thrift.I8, "IntType.BitWidth") {
				it.BitWidth = d.ReadI8()
			}
		case 2:
			it.IsSigned = d.ReadBool()
		default:
			d.Skip(typ)
		}
	}
	d.ReadStructEnd()
}

func decodeLogicalType(d *thrift.Decoder, lt *LogicalType) {
	d.ReadStructBegin()
	for d.Err() == nil {
		id, typ := d.ReadFieldHeader()
		if typ == thrift.Stop {
			break
		}
		if typ != thrift.Struct {
			d.Skip(typ)
			continue
		}
		switch id {
		case 1:
			lt.UTF8 = &StringType{}
			skipEmptyStruct(d)
		case 2:
			lt.Map = &MapType{}
			skipEmptyStruct(d)
		case 3:
			lt.List = &ListType{}
			skipEmptyStruct(d)
		case 4:
			lt.Enum = &EnumType{}
			skipEmptyStruct(d)
		case 5:
			lt.Decimal = &DecimalType{}
			decodeDecimalType(d, lt.Decimal)
		case 6:
			lt.Date = &DateType{}
			skipEmptyStruct(d)
		case 7:
			lt.Time = &TimeType{}
			decodeTimeType(d, lt.Time)
		case 8:
			lt.Timestamp = &TimestampType{}
			decodeTimestampType(d, lt.Timestamp)
		case 10:
			lt.Integer = &IntType{}
			decodeIntType(d, lt.Integer)
		case 11:
			lt.Unknown = &NullType{}
			skipEmptyStruct(d)
		case 12:
			lt.Json = &JsonType{}
			skipEmptyStruct(d)
		case 13:
			lt.Bson = &BsonType{}
			skipEmptyStruct(d)
		case 14:
			lt.UUID = &UUIDType{}
			skipEmptyStruct(d)
		case 15:
			lt.Float16 = &Float16Type{}
			skipEmptyStruct(d)
		default:
			d.Skip(typ)
		}
	}
	d.ReadStructEnd()
}

func decodeSchemaElement(d *thrift.Decoder, se *SchemaElement) {
	d.ReadStructBegin()
	for d.Err() == nil {
		id, typ := d.ReadFieldHeader()
		if typ == thrift.Stop {
			break
		}
		switch id {
		case 1:
			if expect(d, typ, thrift.I32, "SchemaElement.Type") {
				t := Type(d.ReadI32())
				se.Type = &t
			}
		case 2:
			if expect(d, typ, thrift.I32, "SchemaElement.TypeLength") {
				v := d.ReadI32()
				se.TypeLength = &v
			}
		case 3:
			if expect(d, typ, thrift.I32, "SchemaElement.RepetitionType") {
				rt := FieldRepetitionType(d.ReadI32())
				se.RepetitionType = &rt
			}
		case 4:
			if expect(d, typ, thrift.Binary, "SchemaElement.Name") {
				se.Name = d.ReadString()
			}
		case 5:
			if expect(d, typ, thrift.I32, "SchemaElement.NumChildren") {
				v := d.ReadI32()
				se.NumChildren = &v
			}
		case 6:
			if expect(d, typ, thrift.I32, "SchemaElement.ConvertedType") {
				ct := ConvertedType(d.ReadI32())
				se.ConvertedType = &ct
			}
		case 7:
			if expect(d, typ, thrift.I32, "SchemaElement.Scale") {
				v := d.ReadI32()
				se.Scale = &v
			}
		case 8:
			if expect(d, typ, thrift.I32, "SchemaElement.Precision") {
				v := d.ReadI32()
				se.Precision = &v
			}
		case 9:
			if expect(d, typ, thrift.I32, "SchemaElement.FieldID") {
				se.FieldID = d.ReadI32()
			}
		case 10:
			if expect(d, typ, thrift.Struct, "SchemaElement.LogicalType") {
				se.LogicalType = &LogicalType{}
				decodeLogicalType(d, se.LogicalType)
			}
		default:
			d.Skip(typ)
		}
	}
	d.ReadStructEnd()
}

func decodeColumnMetaData(d *thrift.Decoder, cmd *ColumnMetaData) {
	d.ReadStructBegin()
	for d.Err() == nil {
		id, typ := d.ReadFieldHeader()
		if typ == thrift.Stop {
			break
		}
		switch id {
		case 1:
			if expect(d, typ, thrift.I32, "ColumnMetaData.Type") {
				cmd.Type = Type(d.ReadI32())
			}
		case 2:
			size, elem := d.ReadListHeader()
			if !expectList(d, typ, elem, thrift.I32, "ColumnMetaData.Encoding") ||
				!checkCount(d, size, MaxEncodings, "ColumnMetaData.Encoding") {
				break
			}
			cmd.Encoding = make([]Encoding, size)
			for i := range cmd.Encoding {
				cmd.Encoding[i] = Encoding(d.ReadI32())
			}
		case 3:
			size, elem := d.ReadListHeader()
			if !expectList(d, typ, elem, thrift.Binary, "ColumnMetaData.PathInSchema") ||
				!checkCount(d, size, MaxPathElements, "ColumnMetaData.PathInSchema") {
				break
			}
			cmd.PathInSchema = make([]string, size)
			for i := range cmd.PathInSchema {
				cmd.PathInSchema[i] = d.ReadString()
			}
		case 4:
			if expect(d, typ, thrift.I32, "ColumnMetaData.Codec") {
				cmd.Codec = CompressionCodec(d.ReadI32())
			}
		case 5:
			if expect(d, typ, thrift.I64, "ColumnMetaData.NumValues") {
				cmd.NumValues = d.ReadI64()
			}
		case 6:
			if expect(d, typ, thrift.I64, "ColumnMetaData.TotalUncompressedSize") {
				cmd.TotalUncompressedSize = d.ReadI64()
			}
		case 7:
			if expect(d, typ, thrift.I64, "ColumnMetaData.TotalCompressedSize") {
				cmd.TotalCompressedSize = d.ReadI64()
			}
		case 8:
			cmd.KeyValueMetadata = decodeKeyValueList(d, typ, "ColumnMetaData.KeyValueMetadata")
		case 9:
			if expect(d, typ, thrift.I64, "ColumnMetaData.DataPageOffset") {
				cmd.DataPageOffset = d.ReadI64()
			}
		case 10:
			if expect(d, typ, thrift.I64, "ColumnMetaData.IndexPageOffset") {
				cmd.IndexPageOffset = d.ReadI64()
			}
		case 11:
			if expect(d, typ, thrift.I64, "ColumnMetaData.DictionaryPageOffset") {
				cmd.DictionaryPageOffset = d.ReadI64()
			}
		case 12:
			if expect(d, typ, thrift.Struct, "ColumnMetaData.Statistics") {
				decodeStatistics(d, &cmd.Statistics)
			}
		case 13:
			size, elem := d.ReadListHeader()
			if !expectList(d, typ, elem, thrift.Struct, "ColumnMetaData.EncodingStats") ||
				!checkCount(d, size, MaxEncodingStats, "ColumnMetaData.EncodingStats") {
				break
			}
			cmd.EncodingStats = make([]PageEncodingStats, size)
			for i := range cmd.EncodingStats {
				decodePageEncodingStats(d, &cmd.EncodingStats[i])
			}
		case 14:
			if expect(d, typ, thrift.I64, "ColumnMetaData.BloomFilterOffset") {
				cmd.BloomFilterOffset = d.ReadI64()
			}
		case 15:
			if expect(d, typ, thrift.I32, "ColumnMetaData.BloomFilterLength") {
				cmd.BloomFilterLength = d.ReadI32()
			}
		default:
			d.Skip(typ)
		}
	}
	d.ReadStructEnd()
}

func decodeColumnChunk(d *thrift.Decoder, cc *ColumnChunk) {
	d.ReadStructBegin()
	for d.Err() == nil {
		id, typ := d.ReadFieldHeader()
		if typ == thrift.Stop {
			break
		}
		switch id {
		case 1:
			if expect(d, typ, thrift.Binary, "ColumnChunk.FilePath") {
				cc.FilePath = d.ReadString()
			}
		case 2:
			if expect(d, typ, thrift.I64, "ColumnChunk.FileOffset") {
				cc.FileOffset = d.ReadI64()
			}
		case 3:
			if expect(d, typ, thrift.Struct, "ColumnChunk.MetaData") {
				decodeColumnMetaData(d, &cc.MetaData)
			}
		case 4:
			if expect(d, typ, thrift.I64, "ColumnChunk.OffsetIndexOffset") {
				cc.OffsetIndexOffset = d.ReadI64()
			}
		case 5:
			if expect(d, typ, thrift.I32, "ColumnChunk.OffsetIndexLength") {
				cc.OffsetIndexLength = d.ReadI32()
			}
		case 6:
			if expect(d, typ, thrift.I64, "ColumnChunk.ColumnIndexOffset") {
				cc.ColumnIndexOffset = d.ReadI64()
			}
		case 7:
			if expect(d, typ, thrift.I32, "ColumnChunk.ColumnIndexLength") {
				cc.ColumnIndexLength = d.ReadI32()
			}
		default:
			d.Skip(typ)
		}
	}
	d.ReadStructEnd()
}

func decodeRowGroup(d *thrift.Decoder, rg *RowGroup) {
	d.ReadStructBegin()
	for d.Err() == nil {
		id, typ := d.ReadFieldHeader()
		if typ == thrift.Stop {
			break
		}
		switch id {
		case 1:
			size, elem := d.ReadListHeader()
			if !expectList(d, typ, elem, thrift.Struct, "RowGroup.Columns") ||
				!checkCount(d, size, MaxColumnsPerRowGroup, "RowGroup.Columns") {
				break
			}
			rg.Columns = make([]ColumnChunk, size)
			for i := range rg.Columns {
				decodeColumnChunk(d, &rg.Columns[i])
			}
		case 2:
			if expect(d, typ, thrift.I64, "RowGroup.TotalByteSize") {
				rg.TotalByteSize = d.ReadI64()
			}
		case 3:
			if expect(d, typ, thrift.I64, "RowGroup.NumRows") {
				rg.NumRows = d.ReadI64()
			}
		case 4:
			size, elem := d.ReadListHeader()
			if !expectList(d, typ, elem, thrift.Struct, "RowGroup.SortingColumns") ||
				!checkCount(d, size, MaxColumnsPerRowGroup, "RowGroup.SortingColumns") {
				break
			}
			rg.SortingColumns = make([]SortingColumn, size)
			for i := range rg.SortingColumns {
				decodeSortingColumn(d, &rg.SortingColumns[i])
			}
		case 5:
			if expect(d, typ, thrift.I64, "RowGroup.FileOffset") {
				rg.FileOffset = d.ReadI64()
			}
		case 6:
			if expect(d, typ, thrift.I64, "RowGroup.TotalCompressedSize") {
				rg.TotalCompressedSize = d.ReadI64()
			}
		case 7:
			if expect(d, typ, thrift.I16, "RowGroup.Ordinal") {
				rg.Ordinal = d.ReadI16()
			}
		default:
			d.Skip(typ)
		}
	}
	d.ReadStructEnd()
}

// DecodeFileMetaData parses a Thrift-encoded FileMetaData from data.
// Decoded strings and byte slices reference data.
func DecodeFileMetaData(data []byte, fmd *FileMetaData) error {
	d := thrift.NewDecoder(data)
	d.ReadStructBegin()
	for d.Err() == nil {
		id, typ := d.ReadFieldHeader()
		if typ == thrift.Stop {
			break
		}
		switch id {
		case 1:
			if expect(d, typ, thrift.I32, "FileMetaData.Version") {
				fmd.Version = d.ReadI32()
			}
		case 2:
			size, elem := d.ReadListHeader()
			if !expectList(d, typ, elem, thrift.Struct, "FileMetaData.Schema") ||
				!checkCount(d, size, MaxSchemaElements, "FileMetaData.Schema") {
				break
			}
			fmd.Schema = make([]SchemaElement, size)
			for i := range fmd.Schema {
				decodeSchemaElement(d, &fmd.Schema[i])
			}
		case 3:
			if expect(d, typ, thrift.I64, "FileMetaData.NumRows") {
				fmd.NumRows = d.ReadI64()
			}
		case 4:
			size, elem := d.ReadListHeader()
			if !expectList(d, typ, elem, thrift.Struct, "FileMetaData.RowGroups") ||
				!checkCount(d, size, MaxRowGroups, "FileMetaData.RowGroups") {
				break
			}
			fmd.RowGroups = make([]RowGroup, size)
			for i := range fmd.RowGroups {
				decodeRowGroup(d, &fmd.RowGroups[i])
			}
		case 5:
			fmd.KeyValueMetadata = decodeKeyValueList(d, typ, "FileMetaData.KeyValueMetadata")
		case 6:
			if expect(d, typ, thrift.Binary, "FileMetaData.CreatedBy") {
				fmd.CreatedBy = d.ReadString()
			}
		default:
			d.Skip(typ)
		}
	}
	return d.Err()
}

func decodeDataPageHeader(d *thrift.Decoder, h *DataPageHeader) {
	d.ReadStructBegin()
	for d.Err() == nil {
		id, typ := d.ReadFieldHeader()
		if typ == thrift.Stop {
			break
		}
		switch id {
		case 1:
			if expect(d, typ, thrift.I32, "DataPageHeader.NumValues") {
				h.NumValues = d.ReadI32()
			}
		case 2:
			if expect(d, typ, thrift.I32, "DataPageHeader.Encoding") {
				h.Encoding = Encoding(d.ReadI32())
			}
		case 3:
			if expect(d, typ, thrift.I32, "DataPageHeader.DefinitionLevelEncoding") {
				h.DefinitionLevelEncoding = Encoding(d.ReadI32())
			}
		case 4:
			if expect(d, typ, thrift.I32, "DataPageHeader.RepetitionLevelEncoding") {
				h.RepetitionLevelEncoding = Encoding(d.ReadI32())
			}
		case 5:
			if expect(d, typ, thrift.Struct, "DataPageHeader.Statistics") {
				decodeStatistics(d, &h.Statistics)
			}
		default:
			d.Skip(typ)
		}
	}
	d.ReadStructEnd()
}

func decodeDictionaryPageHeader(d *thrift.Decoder, h *DictionaryPageHeader) {
	d.ReadStructBegin()
	for d.Err() == nil {
		id, typ := d.ReadFieldHeader()
		if typ == thrift.Stop {
			break
		}
		switch id {
		case 1:
			if expect(d, typ, thrift.I32, "DictionaryPageHeader.NumValues") {
				h.NumValues = d.ReadI32()
			}
		case 2:
			if expect(d, typ, thrift.I32, "DictionaryPageHeader.Encoding") {
				h.Encoding = Encoding(d.ReadI32())
			}
		case 3:
			h.IsSorted = d.ReadBool()
		default:
			d.Skip(typ)
		}
	}
	d.ReadStructEnd()
}

func decodeDataPageHeaderV2(d *thrift.Decoder, h *DataPageHeaderV2) {
	d.ReadStructBegin()
	for d.Err() == nil {
		id, typ := d.ReadFieldHeader()
		if typ == thrift.Stop {
			break
		}
		switch id {
		case 1:
			if expect(d, typ, thrift.I32, "DataPageHeaderV2.NumValues") {
				h.NumValues = d.ReadI32()
			}
		case 2:
			if expect(d, typ, thrift.I32, "DataPageHeaderV2.NumNulls") {
				h.NumNulls = d.ReadI32()
			}
		case 3:
			if expect(d, typ, thrift.I32, "DataPageHeaderV2.NumRows") {
				h.NumRows = d.ReadI32()
			}
		case 4:
			if expect(d, typ, thrift.I32, "DataPageHeaderV2.Encoding") {
				h.Encoding = Encoding(d.ReadI32())
			}
		case 5:
			if expect(d, typ, thrift.I32, "DataPageHeaderV2.DefinitionLevelsByteLength") {
				h.DefinitionLevelsByteLength = d.ReadI32()
			}
		case 6:
			if expect(d, typ, thrift.I32, "DataPageHeaderV2.RepetitionLevelsByteLength") {
				h.RepetitionLevelsByteLength = d.ReadI32()
			}
		case 7:
			h.IsCompressed = d.ReadBool()
		case 8:
			if expect(d, typ, thrift.Struct, "DataPageHeaderV2.Statistics") {
				decodeStatistics(d, &h.Statistics)
			}
		default:
			d.Skip(typ)
		}
	}
	d.ReadStructEnd()
}

// DecodePageHeader parses a Thrift-encoded PageHeader from the start of
// data, returning the number of bytes consumed. Page headers have no length
// field; the payload begins wherever the header's STOP byte falls, which is
// exactly the returned count.
func DecodePageHeader(data []byte, h *PageHeader) (int, error) {
	d := thrift.NewDecoder(data)
	d.ReadStructBegin()
	for d.Err() == nil {
		id, typ := d.ReadFieldHeader()
		if typ == thrift.Stop {
			break
		}
		switch id {
		case 1:
			if expect(d, typ, thrift.I32, "PageHeader.Type") {
				h.Type = PageType(d.ReadI32())
			}
		case 2:
			if expect(d, typ, thrift.I32, "PageHeader.UncompressedPageSize") {
				h.UncompressedPageSize = d.ReadI32()
			}
		case 3:
			if expect(d, typ, thrift.I32, "PageHeader.CompressedPageSize") {
				h.CompressedPageSize = d.ReadI32()
			}
		case 4:
			if expect(d, typ, thrift.I32, "PageHeader.CRC") {
				h.CRC = d.ReadI32()
				h.HasCRC = true
			}
		case 5:
			if expect(d, typ, thrift.Struct, "PageHeader.DataPageHeader") {
				h.DataPageHeader = &DataPageHeader{}
				decodeDataPageHeader(d, h.DataPageHeader)
			}
		case 7:
			if expect(d, typ, thrift.Struct, "PageHeader.DictionaryPageHeader") {
				h.DictionaryPageHeader = &DictionaryPageHeader{}
				decodeDictionaryPageHeader(d, h.DictionaryPageHeader)
			}
		case 8:
			if expect(d, typ, thrift.Struct, "PageHeader.DataPageHeaderV2") {
				h.DataPageHeaderV2 = &DataPageHeaderV2{}
				decodeDataPageHeaderV2(d, h.DataPageHeaderV2)
			}
		default:
			d.Skip(typ)
		}
	}
	return d.Pos(), d.Err()
}
