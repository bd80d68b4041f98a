//go:build cgo

package engine

/*
#cgo linux LDFLAGS: -ldl
#cgo darwin LDFLAGS: -ldl

#include <stdlib.h>

#ifdef _WIN32
#include <windows.h>
typedef HMODULE spk_handle;
#define spk_open(p) LoadLibraryA(p)
#define spk_sym(h, n) ((void*)GetProcAddress(h, n))
#define spk_close(h) FreeLibrary(h)
#else
#include <dlfcn.h>
typedef void* spk_handle;
#define spk_open(p) dlopen(p, RTLD_LAZY)
#define spk_sym(h, n) dlsym(h, n)
#define spk_close(h) dlclose(h)
#endif

typedef char* (*spk_calculate_digest_fn)(
    const char*, const char*, const char*, const char*, const char*,
    const char*, const char*, const char*, int, int, int, int,
    double, double, double, double, int);
typedef char* (*spk_str_fn)(const char*);
typedef int (*spk_embed_fn)(const char*, const char*, const char*);
typedef int (*spk_int_fn)(const char*);
typedef void (*spk_free_fn)(char*);

typedef struct {
    spk_handle handle;
    spk_calculate_digest_fn calculate_digest;
    spk_str_fn get_revocation_parameters;
    spk_embed_fn embed_cms;
    spk_str_fn verify;
    spk_int_fn is_signature_exist;
    spk_free_fn free_c_string;
} spk_lib;

// spk_load returns NULL if the library or a required symbol is missing.
// is_signature_exist is optional.
static spk_lib* spk_load(const char* path) {
    spk_handle h = spk_open(path);
    if (!h) {
        return NULL;
    }
    spk_lib* l = (spk_lib*)calloc(1, sizeof(spk_lib));
    if (!l) {
        spk_close(h);
        return NULL;
    }
    l->handle = h;
    l->calculate_digest = (spk_calculate_digest_fn)spk_sym(h, "calculate_digest");
    l->get_revocation_parameters = (spk_str_fn)spk_sym(h, "get_revocation_parameters");
    l->embed_cms = (spk_embed_fn)spk_sym(h, "embed_cms");
    l->verify = (spk_str_fn)spk_sym(h, "verify");
    l->is_signature_exist = (spk_int_fn)spk_sym(h, "is_signature_exist");
    l->free_c_string = (spk_free_fn)spk_sym(h, "free_c_string");

    if (!l->calculate_digest || !l->get_revocation_parameters ||
        !l->embed_cms || !l->verify || !l->free_c_string) {
        spk_close(h);
        free(l);
        return NULL;
    }
    return l;
}

static void spk_unload(spk_lib* l) {
    if (l) {
        spk_close(l->handle);
        free(l);
    }
}

static char* spk_calculate_digest(spk_lib* l,
    const char* input, const char* image, const char* url, const char* location,
    const char* reason, const char* contact, const char* field, const char* character,
    int signature_type, int page, int subfilter, int visibility,
    double x, double y, double w, double h, int dss) {
    return l->calculate_digest(input, image, url, location, reason, contact, field,
        character, signature_type, page, subfilter, visibility, x, y, w, h, dss);
}

static char* spk_get_revocation_parameters(spk_lib* l, const char* cms) {
    return l->get_revocation_parameters(cms);
}

static int spk_embed_cms(spk_lib* l, const char* pre, const char* cms, const char* out) {
    if (!l->embed_cms) {
        return -1;
    }
    return l->embed_cms(pre, cms, out);
}

static char* spk_verify(spk_lib* l, const char* path) {
    return l->verify(path);
}

static int spk_has_signature_exist(spk_lib* l) {
    return l->is_signature_exist != NULL;
}

static int spk_is_signature_exist(spk_lib* l, const char* path) {
    return l->is_signature_exist(path);
}

static void spk_free(spk_lib* l, char* s) {
    if (s) {
        l->free_c_string(s);
    }
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

type cgoABI struct {
	lib *C.spk_lib
}

func loadABI(path string) (abi, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	lib := C.spk_load(cPath)
	if lib == nil {
		return nil, fmt.Errorf("failed to load native library %s", path)
	}
	return &cgoABI{lib: lib}, nil
}

// cstrings allocates C copies of ss; the returned func frees them.
func cstrings(ss ...string) ([]*C.char, func()) {
	out := make([]*C.char, len(ss))
	for i, s := range ss {
		out[i] = C.CString(s)
	}
	return out, func() {
		for _, p := range out {
			C.free(unsafe.Pointer(p))
		}
	}
}

// takeString copies a native string and releases it with free_c_string.
func (c *cgoABI) takeString(p *C.char) (string, bool) {
	if p == nil {
		return "", false
	}
	defer C.spk_free(c.lib, p)
	return C.GoString(p), true
}

func (c *cgoABI) calculateDigest(a digestArgs) (string, bool) {
	s, free := cstrings(a.InputPath, a.ImagePath, a.URL, a.Location, a.Reason,
		a.ContactInfo, a.FieldID, a.Character)
	defer free()

	return c.takeString(C.spk_calculate_digest(c.lib,
		s[0], s[1], s[2], s[3], s[4], s[5], s[6], s[7],
		C.int(a.SignatureType), C.int(a.Page), C.int(a.Subfilter), C.int(a.Visibility),
		C.double(a.X), C.double(a.Y), C.double(a.Width), C.double(a.Height),
		C.int(a.DSS)))
}

func (c *cgoABI) revocationParameters(cms string) (string, bool) {
	s, free := cstrings(cms)
	defer free()
	return c.takeString(C.spk_get_revocation_parameters(c.lib, s[0]))
}

func (c *cgoABI) embedCMS(preSign, bundle, outputPath string) int {
	s, free := cstrings(preSign, bundle, outputPath)
	defer free()
	return int(C.spk_embed_cms(c.lib, s[0], s[1], s[2]))
}

func (c *cgoABI) verify(path string) (string, bool) {
	s, free := cstrings(path)
	defer free()
	return c.takeString(C.spk_verify(c.lib, s[0]))
}

func (c *cgoABI) signatureExists(path string) (int, bool) {
	if C.spk_has_signature_exist(c.lib) == 0 {
		return 0, false
	}
	s, free := cstrings(path)
	defer free()
	return int(C.spk_is_signature_exist(c.lib, s[0])), true
}

func (c *cgoABI) close() error {
	C.spk_unload(c.lib)
	c.lib = nil
	return nil
}
