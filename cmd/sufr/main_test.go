package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testFasta = ">a\nACGTACGT\n>b\nNNGGCC\n"

func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func createArray(t *testing.T, extra ...string) (string, string) {
	t.Helper()
	return createArrayFrom(t, testFasta, extra...)
}

func createArrayFrom(t *testing.T, fasta string, extra ...string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	seq := filepath.Join(dir, "seq.fa")
	if err := os.WriteFile(seq, []byte(fasta), 0o644); err != nil {
		t.Fatal(err)
	}
	arr := filepath.Join(dir, "seq.sufr")
	args := append([]string{"create", seq, "-o", arr, "-n", "4", "--log", "error"}, extra...)
	if code, _, stderr := runCmd(t, args...); code != 0 {
		t.Fatalf("create exited %d: %s", code, stderr)
	}
	return seq, arr
}

func TestCreateCheckRead(t *testing.T) {
	seq, arr := createArray(t, "--check")

	code, out, stderr := runCmd(t, "check", "-s", seq, "-a", arr)
	if code != 0 {
		t.Fatalf("check exited %d: %s", code, stderr)
	}
	if !strings.HasPrefix(out, "ok: 16 suffixes") {
		t.Errorf("check output %q", out)
	}

	code, out, _ = runCmd(t, "read", "-a", arr, "-e", "11-15")
	if code != 0 || out != "GGCC\n" {
		t.Errorf("read -e = %d %q, want 0 %q", code, out, "GGCC\n")
	}

	code, out, _ = runCmd(t, "read", "-a", arr)
	if code != 0 || !strings.Contains(out, "records:     2") {
		t.Errorf("read summary = %d %q", code, out)
	}
}

func TestSearch(t *testing.T) {
	_, arr := createArray(t)

	code, out, _ := runCmd(t, "search", "-a", arr, "ACG", "GGCC", "TTT")
	if code != 0 {
		t.Fatalf("search exited %d", code)
	}
	if want := "ACG\t2\nGGCC\t1\nTTT\t0\n"; out != want {
		t.Errorf("search output %q, want %q", out, want)
	}

	_, out, _ = runCmd(t, "search", "-a", arr, "--load", "--locate", "GGCC")
	if want := "GGCC\tb\t2\t11\n"; out != want {
		t.Errorf("locate output %q, want %q", out, want)
	}

	_, out, _ = runCmd(t, "search", "-a", arr, "--records", "5", "NNG", "ACGT")
	if want := "NNG\tb\nACGT\ta\n"; out != want {
		t.Errorf("records output %q, want %q", out, want)
	}
}

func TestSearchExtract(t *testing.T) {
	_, arr := createArray(t)

	code, out, stderr := runCmd(t, "search", "-a", arr, "--extract", "--prefix", "1", "--suffix", "3", "GGC")
	if want := ">b:1-5 GGC 1\nNGGC\n"; code != 0 || out != want {
		t.Errorf("search --extract = %d %q, want 0 %q (%s)", code, out, want, stderr)
	}

	code, out, _ = runCmd(t, "search", "-a", arr, "--extract", "ACGT")
	if want := ">a:0-9 ACGT 0\nACGTACGTN\n>a:4-9 ACGT 0\nACGTN\n"; code != 0 || out != want {
		t.Errorf("search --extract = %d %q, want 0 %q", code, out, want)
	}

	if code, _, _ := runCmd(t, "search", "-a", arr, "--extract", "--prefix", "-1", "ACGT"); code != 2 {
		t.Errorf("negative prefix exited %d, want 2", code)
	}
}

func TestCreateSoftMask(t *testing.T) {
	const fasta = ">a\nACGTacgt\n>b\nGG\n"
	seq, arr := createArrayFrom(t, fasta, "--ignore-softmask")

	code, out, _ := runCmd(t, "search", "-a", arr, "acgt", "NNNN")
	if want := "acgt\t1\nNNNN\t2\n"; code != 0 || out != want {
		t.Errorf("search = %d %q, want 0 %q", code, out, want)
	}
	if code, _, stderr := runCmd(t, "check", "-s", seq, "-a", arr); code != 0 {
		t.Errorf("check exited %d: %s", code, stderr)
	}
	if _, out, _ := runCmd(t, "read", "-a", arr); !strings.Contains(out, "soft mask:   true") {
		t.Errorf("read summary %q", out)
	}

	_, plain := createArrayFrom(t, fasta)
	if _, out, _ := runCmd(t, "search", "-a", plain, "acgt"); out != "acgt\t2\n" {
		t.Errorf("unmasked search %q", out)
	}
}

func TestCreateEmptyRecords(t *testing.T) {
	createArrayFrom(t, ">a\nACGT\n>b\n")

	_, arr := createArrayFrom(t, ">a\nACGT\n>b\n>c\nGG\n>d\n")
	code, out, _ := runCmd(t, "search", "-a", arr, "--locate", "GG")
	if want := "GG\tc\t0\t6\n"; code != 0 || out != want {
		t.Errorf("search --locate = %d %q, want 0 %q", code, out, want)
	}
}

func TestCheckMismatchedSequence(t *testing.T) {
	_, arr := createArray(t)
	other := filepath.Join(t.TempDir(), "other.fa")
	if err := os.WriteFile(other, []byte(">a\nACGTACGA\n>b\nNNGGCC\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, _, stderr := runCmd(t, "check", "-s", other, "-a", arr)
	if code != 1 || !strings.HasPrefix(stderr, "CorruptIndex:") {
		t.Errorf("check = %d %q, want 1 CorruptIndex", code, stderr)
	}
}

func TestTruncatedArray(t *testing.T) {
	_, arr := createArray(t)
	data, err := os.ReadFile(arr)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(arr, data[:len(data)-3], 0o644); err != nil {
		t.Fatal(err)
	}
	code, _, stderr := runCmd(t, "check", "-a", arr)
	if code != 1 || !strings.HasPrefix(stderr, "CorruptIndex:") {
		t.Errorf("check = %d %q, want 1 CorruptIndex", code, stderr)
	}
}

func TestExitCodes(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.fa")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "bad.fa")
	if err := os.WriteFile(bad, []byte(">x\nACGZ\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, arr := createArray(t)

	tests := []struct {
		name string
		args []string
		code int
		kind string
	}{
		{"no command", nil, 2, ""},
		{"unknown command", []string{"frobnicate"}, 2, ""},
		{"missing output", []string{"create", empty}, 2, ""},
		{"bad alphabet", []string{"create", empty, "-o", filepath.Join(dir, "x"), "--alphabet", "rna"}, 2, ""},
		{"empty input", []string{"create", empty, "-o", filepath.Join(dir, "x"), "--log", "error"}, 1, "EmptySequence:"},
		{"invalid symbol", []string{"create", bad, "-o", filepath.Join(dir, "x"), "--log", "error"}, 1, "InvalidAlphabet:"},
		{"extract out of range", []string{"read", "-a", arr, "-e", "0-100"}, 1, "OutOfRange:"},
		{"help", []string{"help"}, 0, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, _, stderr := runCmd(t, tc.args...)
			if code != tc.code {
				t.Errorf("exit code %d, want %d (stderr %q)", code, tc.code, stderr)
			}
			if tc.kind != "" && !strings.HasPrefix(stderr, tc.kind) {
				t.Errorf("stderr %q, want prefix %q", stderr, tc.kind)
			}
		})
	}
	if _, err := os.Stat(filepath.Join(dir, "x")); !os.IsNotExist(err) {
		t.Errorf("failed create left an artifact: %v", err)
	}
}
