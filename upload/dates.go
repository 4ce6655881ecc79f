package upload

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// dateTextLayout renders date-formatted workbook cells; the result never types as a number
const dateTextLayout = "2006-01-02 15:04:05"

// isBuiltinDateFormat reports whether a built-in number format id displays a date or time.
// 27-36 and 50-58 are the CJK locale date formats.
func isBuiltinDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22:
		return true
	case id >= 27 && id <= 36:
		return true
	case id >= 45 && id <= 47:
		return true
	case id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormatCode reports whether a custom number format code contains date or time tokens
// outside of quoted literals, escapes and bracketed sections such as [Red] or [$-409].
func isDateFormatCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case inQuote:
			inQuote = c != '"'
		case inBracket:
			inBracket = c != ']'
		case c == '"':
			inQuote = true
		case c == '[':
			inBracket = true
		case c == '\\' || c == '_' || c == '*':
			i++
		default:
			b.WriteByte(c)
		}
	}
	return strings.ContainsAny(strings.ToLower(b.String()), "dmyhs")
}

// xlsxDateStyles caches the date classification of excelize style ids
type xlsxDateStyles struct {
	f     *excelize.File
	known map[int]bool
}

func (s *xlsxDateStyles) isDate(sheet, cell string) bool {
	id, err := s.f.GetCellStyle(sheet, cell)
	if err != nil {
		return false
	}
	if v, ok := s.known[id]; ok {
		return v
	}
	date := false
	if style, err := s.f.GetStyle(id); err == nil && style != nil {
		if style.CustomNumFmt != nil {
			date = isDateFormatCode(*style.CustomNumFmt)
		} else {
			date = isBuiltinDateFormat(style.NumFmt)
		}
	}
	s.known[id] = date
	return date
}

// markXLSXDates rewrites date-formatted numeric cells of rows as date text
func markXLSXDates(f *excelize.File, sheet string, rows [][]string) {
	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	styles := &xlsxDateStyles{f: f, known: make(map[int]bool)}
	for i, row := range rows {
		for j, v := range row {
			serial, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil || !styles.isDate(sheet, cell) {
				continue
			}
			if t, err := excelize.ExcelDateToTime(serial, date1904); err == nil {
				row[j] = t.Format(dateTextLayout)
			}
		}
	}
}

// xlsNumber is a numeric cell record of a legacy workbook row
type xlsNumber struct {
	col    int
	xf     int
	serial float64
}

var (
	xlsRKType     = reflect.TypeOf(xls.RkCol{})
	xlsNumberType = reflect.TypeOf(xls.NumberCol{})
	xlsMulRKType  = reflect.TypeOf(xls.MulrkCol{})
)

// xlsNumbers lists the RK, NUMBER and MULRK records of a row with their XF index.
// extrame/xls keeps the record map unexported and drops number formats from its string
// rendering, so the exported record fields are read through reflection.
func xlsNumbers(row *xls.Row) []xlsNumber {
	cols := reflect.ValueOf(row).Elem().FieldByName("cols")
	if !cols.IsValid() || cols.Kind() != reflect.Map {
		return nil
	}

	var out []xlsNumber
	iter := cols.MapRange()
	for iter.Next() {
		rec := iter.Value()
		if rec.Kind() == reflect.Interface {
			rec = rec.Elem()
		}
		if rec.Kind() != reflect.Ptr || rec.IsNil() {
			continue
		}
		rec = rec.Elem()
		first := int(rec.FieldByName("FirstColB").Uint())

		switch rec.Type() {
		case xlsRKType:
			out = append(out, xlsRK(first, rec.FieldByName("Xfrk")))
		case xlsNumberType:
			out = append(out, xlsNumber{
				col:    first,
				xf:     int(rec.FieldByName("Index").Uint()),
				serial: rec.FieldByName("Float").Float(),
			})
		case xlsMulRKType:
			xfrks := rec.FieldByName("Xfrks")
			for k := 0; k < xfrks.Len(); k++ {
				out = append(out, xlsRK(first+k, xfrks.Index(k)))
			}
		}
	}
	return out
}

func xlsRK(col int, xfrk reflect.Value) xlsNumber {
	rk := xls.RK(xfrk.FieldByName("Rk").Uint())
	serial, _ := strconv.ParseFloat(rk.String(), 64)
	return xlsNumber{col: col, xf: int(xfrk.FieldByName("Index").Uint()), serial: serial}
}

// xlsDateXFs returns the XF indexes whose number format is a date or time format
func xlsDateXFs(wb *xls.WorkBook) map[int]bool {
	dates := make(map[int]bool)
	for i, xf := range wb.Xfs {
		var id uint16
		switch x := xf.(type) {
		case *xls.Xf8:
			id = x.Format
		case *xls.Xf5:
			id = x.Format
		default:
			continue
		}
		if isBuiltinDateFormat(int(id)) {
			dates[i] = true
			continue
		}
		if f, ok := wb.Formats[id]; ok && f != nil {
			code := reflect.ValueOf(f).Elem().FieldByName("str")
			if code.IsValid() && isDateFormatCode(code.String()) {
				dates[i] = true
			}
		}
	}
	return dates
}

// xlsDate1904 reports whether the workbook counts dates from 1904
func xlsDate1904(wb *xls.WorkBook) bool {
	mode := reflect.ValueOf(wb).Elem().FieldByName("dateMode")
	return mode.IsValid() && mode.Uint() == 1
}
