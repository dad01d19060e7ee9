package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/dtg01100/jar2appimage/pkg/errors"
)

// classBytes builds a minimal valid class file declaring className with
// java/lang/Object as superclass.
func classBytes(t *testing.T, major uint16, className string) []byte {
	t.Helper()
	var pool bytes.Buffer
	// 1: utf8 className, 2: class(1), 3: utf8 Object, 4: class(3)
	writeUtf8 := func(s string) {
		pool.WriteByte(1)
		binary.Write(&pool, binary.BigEndian, uint16(len(s)))
		pool.WriteString(s)
	}
	writeClass := func(idx uint16) {
		pool.WriteByte(7)
		binary.Write(&pool, binary.BigEndian, idx)
	}
	writeUtf8(className)
	writeClass(1)
	writeUtf8("java/lang/Object")
	writeClass(3)

	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(0xCAFEBABE))
	binary.Write(&buf, binary.BigEndian, uint16(0))
	binary.Write(&buf, binary.BigEndian, major)
	binary.Write(&buf, binary.BigEndian, uint16(5)) // pool count = slots+1
	buf.Write(pool.Bytes())
	binary.Write(&buf, binary.BigEndian, uint16(0x0021))
	binary.Write(&buf, binary.BigEndian, uint16(2)) // this
	binary.Write(&buf, binary.BigEndian, uint16(4)) // super
	binary.Write(&buf, binary.BigEndian, uint16(0)) // interfaces
	return buf.Bytes()
}

// writeJar creates a jar at dir/name with the given entries.
func writeJar(t *testing.T, dir, name string, entries map[string][]byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create %s: %v", p, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for entryName, data := range entries {
		w, err := zw.Create(entryName)
		if err != nil {
			t.Fatalf("create entry %s: %v", entryName, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("write entry %s: %v", entryName, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close jar: %v", err)
	}
	return p
}

func TestAnalyzeSimpleJar(t *testing.T) {
	dir := t.TempDir()
	jar := writeJar(t, dir, "app-1.0.jar", map[string][]byte{
		"META-INF/MANIFEST.MF":  []byte("Main-Class: com.example.App\nClass-Path: lib/util.jar\n"),
		"com/example/App.class": classBytes(t, 52, "com/example/App"),
		"resources/logo.png":    []byte("notapng"),
	})

	result, err := New(Options{}).Analyze(context.Background(), jar)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if !result.Valid {
		t.Error("result should be valid")
	}
	if got := result.Coordinate; got.Artifact != "app" || got.Version != "1.0" {
		t.Errorf("Coordinate = %v", got)
	}
	if len(result.Classes) != 1 || result.Classes[0].ClassName != "com/example/App" {
		t.Errorf("Classes = %v", result.Classes)
	}
	if result.Manifest.MainClass != "com.example.App" {
		t.Errorf("MainClass = %q", result.Manifest.MainClass)
	}
	if result.MaxMajorVersion != 52 || result.JavaVersion() != "8" {
		t.Errorf("MaxMajorVersion = %d (%q)", result.MaxMajorVersion, result.JavaVersion())
	}
	if result.ResourceCount != 1 {
		t.Errorf("ResourceCount = %d, want 1", result.ResourceCount)
	}
	if result.SizeBytes == 0 {
		t.Error("SizeBytes should reflect on-disk length")
	}
}

func TestAnalyzeManifestCoordinateWins(t *testing.T) {
	dir := t.TempDir()
	jar := writeJar(t, dir, "someweirdname.jar", map[string][]byte{
		"META-INF/MANIFEST.MF": []byte("Implementation-Title: guava\nImplementation-Version: 33.0.0\n"),
	})

	result, err := New(Options{}).Analyze(context.Background(), jar)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Coordinate.Artifact != "guava" || result.Coordinate.Version != "33.0.0" {
		t.Errorf("Coordinate = %v, want guava:33.0.0", result.Coordinate)
	}
}

func TestAnalyzeNativeLibraries(t *testing.T) {
	dir := t.TempDir()
	jar := writeJar(t, dir, "natives-2.1.jar", map[string][]byte{
		"native/linux/libfoo.so":    []byte("elf"),
		"native/windows/foo.dll":    []byte("pe"),
		"native/darwin/libfoo.dylib": []byte("macho"),
	})

	result, err := New(Options{}).Analyze(context.Background(), jar)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(result.NativeLibraries) != 3 {
		t.Fatalf("NativeLibraries = %v", result.NativeLibraries)
	}
	if !result.NativeOnly() {
		t.Error("archive with only native libs should be NativeOnly")
	}

	platforms := make(map[Platform]bool)
	for _, lib := range result.NativeLibraries {
		platforms[lib.Platform] = true
	}
	for _, want := range []Platform{PlatformLinux, PlatformWindows, PlatformMacOS} {
		if !platforms[want] {
			t.Errorf("missing platform %s in %v", want, result.NativeLibraries)
		}
	}
}

func TestAnalyzeMalformedClassIsWarning(t *testing.T) {
	dir := t.TempDir()
	jar := writeJar(t, dir, "mixed-1.0.jar", map[string][]byte{
		"good/App.class": classBytes(t, 52, "good/App"),
		"bad/Oops.class": []byte("not a class file"),
	})

	result, err := New(Options{}).Analyze(context.Background(), jar)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(result.Classes) != 1 {
		t.Errorf("Classes = %d, want 1 (bad entry skipped)", len(result.Classes))
	}
	if len(result.Warnings) != 1 {
		t.Errorf("Warnings = %v, want 1 entry", result.Warnings)
	}
}

func TestAnalyzeNotAZip(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "garbage.jar")
	if err := os.WriteFile(p, []byte("this is not a zip archive at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := New(Options{}).Analyze(context.Background(), p)
	if !errors.Is(err, errors.ErrCodeInvalidArchive) {
		t.Errorf("Analyze = %v, want INVALID_ARCHIVE", err)
	}
	if result == nil || result.Valid {
		t.Errorf("result = %+v, want invalid result for reporting", result)
	}
	if result != nil && result.Coordinate.Artifact != "garbage" {
		t.Errorf("Coordinate = %v, want filename fallback", result.Coordinate)
	}
}

func TestAnalyzeCorruptedClassEntry(t *testing.T) {
	dir := t.TempDir()
	jar := writeJar(t, dir, "corrupt-1.0.jar", map[string][]byte{
		"com/example/App.class": classBytes(t, 52, "com/example/App"),
	})

	// Flip bytes in the deflate stream so the CRC check fails on read.
	// zip.Writer records the CRC in a data descriptor right after the
	// compressed payload, so the stream sits just before that marker.
	data, err := os.ReadFile(jar)
	if err != nil {
		t.Fatal(err)
	}
	payload := classBytes(t, 52, "com/example/App")
	crc := crc32.ChecksumIEEE(payload)
	var crcBytes [4]byte
	binary.LittleEndian.PutUint32(crcBytes[:], crc)
	idx := bytes.Index(data, crcBytes[:])
	if idx < 16 {
		t.Skip("could not locate CRC in archive layout")
	}
	data[idx-10] ^= 0xFF
	data[idx-11] ^= 0xFF
	if err := os.WriteFile(jar, data, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := New(Options{}).Analyze(context.Background(), jar); err == nil {
		t.Error("Analyze of corrupted archive should fail")
	}
}

func TestAnalyzeTimeout(t *testing.T) {
	dir := t.TempDir()
	jar := writeJar(t, dir, "slow-1.0.jar", map[string][]byte{
		"com/example/App.class": classBytes(t, 52, "com/example/App"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already expired

	_, err := New(Options{}).Analyze(ctx, jar)
	if !errors.Is(err, errors.ErrCodeAnalysisTimeout) {
		t.Errorf("Analyze = %v, want ANALYSIS_TIMEOUT", err)
	}
}

func TestAnalyzeModuleInfo(t *testing.T) {
	dir := t.TempDir()
	jar := writeJar(t, dir, "modular-1.0.jar", map[string][]byte{
		"module-info.class": []byte("ignored payload"),
	})

	result, err := New(Options{}).Analyze(context.Background(), jar)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !result.Manifest.HasModuleDescriptor {
		t.Error("module-info.class should set HasModuleDescriptor")
	}
}

func TestCoordinateFromFilename(t *testing.T) {
	tests := []struct {
		path     string
		artifact string
		version  string
	}{
		{"/lib/guava-33.0.0.jar", "guava", "33.0.0"},
		{"commons-lang3-3.14.0.jar", "commons-lang3", "3.14.0"},
		{"app.jar", "app", ""},
		{"my-app.jar", "my-app", ""},
		{"netty-transport-4.1.100.Final.jar", "netty-transport", "4.1.100.Final"},
	}
	for _, tt := range tests {
		got := CoordinateFromFilename(tt.path)
		if got.Artifact != tt.artifact || got.Version != tt.version {
			t.Errorf("CoordinateFromFilename(%q) = %v, want %s:%s", tt.path, got, tt.artifact, tt.version)
		}
	}
}
