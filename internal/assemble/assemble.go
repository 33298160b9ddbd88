// Package assemble orchestrates the full pipeline -- lex, parse,
// encode, build sections, lay out, emit -- exposing the single
// `Assemble` entry point spec.md section 6 names as the core's only
// operation. Grounded on the teacher's main.go driving its own
// lex/parse/codegen/write pipeline end to end.
package assemble

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/deanmlittle/sbpf/internal/ast"
	"github.com/deanmlittle/sbpf/internal/diag"
	"github.com/deanmlittle/sbpf/internal/elf"
	"github.com/deanmlittle/sbpf/internal/parser"
	"github.com/deanmlittle/sbpf/internal/section"
	"github.com/deanmlittle/sbpf/internal/token"
)

// Options controls optional diagnostic rendering behavior.
type Options struct {
	UseColor bool
}

// Assemble reads sourcePath, assembles it, and writes
// deployDir/<stem>.so. It returns a formatted diagnostic report as the
// error when assembly fails.
func Assemble(sourcePath, deployDir string, opts Options) error {
	src, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", sourcePath, err)
	}

	diags := diag.NewCollector(sourcePath)
	lex := token.New(string(src), diags)
	tokens := lex.Tokenize()

	result := parser.Parse(tokens, diags)
	if diags.HasErrors() {
		return fmt.Errorf("%s", diags.Report(opts.UseColor))
	}

	out, err := build(result)
	if err != nil {
		return err
	}

	stem := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	if err := os.MkdirAll(deployDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", deployDir, err)
	}
	outPath := filepath.Join(deployDir, stem+".so")
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	return nil
}

// build turns a parser.Result into the final ELF64 byte image.
func build(result parser.Result) ([]byte, error) {
	textBytes, _, err := section.BuildText(result.Instructions)
	if err != nil {
		return nil, fmt.Errorf("encoding .text: %w", err)
	}
	rodataBytes := section.BuildRodata(result.Rodata)

	isStatic := result.ProgIsStatic
	phCount := uint64(1)
	if !isStatic {
		phCount = 3
	}
	entry := uint64(elf.HeaderSize) + phCount*elf.ProgramHeaderSize

	if isStatic {
		shstrtabPayload, nameOffsets := section.BuildShstrtab(sectionNameList(rodataBytes))
		lp := elf.LayoutParams{Text: textBytes, Rodata: rodataBytes, IsStatic: true}
		out := elf.Layout(lp, shstrtabPayload)
		return elf.Emit(out, nameOffsets), nil
	}

	dynstr := section.NewStrtab()
	var entryNameOff uint32
	if result.HasEntry {
		entryNameOff = dynstr.Add(result.EntryLabel)
	}
	callNameOffs := make(map[string]uint32, len(result.CallTargets))
	for _, ct := range result.CallTargets {
		callNameOffs[ct.Name] = dynstr.Add(ct.Name)
	}
	dynstrBytes := dynstr.Bytes()

	var dynsymEntries []section.DynSymbol
	dynsymEntries = append(dynsymEntries, section.DynSymbol{}) // null symbol
	symIndex := make(map[string]uint32)
	nextIdx := uint32(1)
	if result.HasEntry {
		dynsymEntries = append(dynsymEntries, section.EntrySymbol(entryNameOff, entry))
		symIndex[result.EntryLabel] = nextIdx
		nextIdx++
	}
	for _, ct := range result.CallTargets {
		dynsymEntries = append(dynsymEntries, section.CallTargetSymbol(callNameOffs[ct.Name]))
		symIndex[ct.Name] = nextIdx
		nextIdx++
	}
	dynsymBytes := make([]byte, 0, len(dynsymEntries)*24)
	for _, e := range dynsymEntries {
		dynsymBytes = append(dynsymBytes, e.Bytecode()...)
	}

	relCount := 0
	var relDynEntries []section.RelDyn
	for _, r := range result.Relocations {
		rd := section.RelDyn{Offset: r.Offset + entry, Type: r.Type}
		if r.Type == ast.RSbfSyscall {
			rd.SymIndex = symIndex[r.Name]
		} else {
			relCount++
		}
		relDynEntries = append(relDynEntries, rd)
	}
	relDynBytes := make([]byte, 0, len(relDynEntries)*16)
	for _, r := range relDynEntries {
		relDynBytes = append(relDynBytes, r.Bytecode()...)
	}

	dynamicSize := len(section.BuildDynamic(section.DynamicParams{RelCount: relCount}))
	dynamicPlaceholder := make([]byte, dynamicSize)

	sectionNames := append(sectionNameList(rodataBytes), ".dynamic", ".dynsym", ".dynstr", ".rel.dyn")
	shstrtabPayload, nameOffsets := section.BuildShstrtab(sectionNames)

	lp := elf.LayoutParams{
		Text: textBytes, Rodata: rodataBytes,
		Dynamic: dynamicPlaceholder, Dynsym: dynsymBytes, Dynstr: dynstrBytes, RelDyn: relDynBytes,
		IsStatic: false,
	}
	out := elf.Layout(lp, shstrtabPayload)

	var dynamicSec *elf.Section
	var dynsymOff, dynstrOff, relDynOff uint64
	for i := range out.Sections {
		switch out.Sections[i].Name {
		case ".dynamic":
			dynamicSec = &out.Sections[i]
		case ".dynsym":
			dynsymOff = out.Sections[i].Offset
		case ".dynstr":
			dynstrOff = out.Sections[i].Offset
		case ".rel.dyn":
			relDynOff = out.Sections[i].Offset
		}
	}
	dynamicSec.Payload = section.BuildDynamic(section.DynamicParams{
		RelOff: relDynOff, RelSz: uint64(len(relDynBytes)),
		SymtabOff: dynsymOff,
		StrtabOff: dynstrOff, StrtabSz: uint64(len(dynstrBytes)),
		RelCount: relCount,
	})

	return elf.Emit(out, nameOffsets), nil
}

func sectionNameList(rodataBytes []byte) []string {
	names := []string{".text"}
	if len(rodataBytes) > 0 {
		names = append(names, ".rodata")
	}
	return names
}
