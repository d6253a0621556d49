package h5

/*
#cgo pkg-config: hdf5
#include <stdlib.h>
#include <string.h>
#include <hdf5.h>

enum {
	SNAP_INT32, SNAP_UINT32, SNAP_INT64, SNAP_UINT64,
	SNAP_FLOAT32, SNAP_FLOAT64, SNAP_STRING, SNAP_UNSUPPORTED
};

static void snap_silence(void) { H5Eset_auto2(H5E_DEFAULT, NULL, NULL); }

static hid_t snap_native(int t) {
	switch (t) {
	case SNAP_INT32: return H5T_NATIVE_INT32;
	case SNAP_UINT32: return H5T_NATIVE_UINT32;
	case SNAP_INT64: return H5T_NATIVE_INT64;
	case SNAP_UINT64: return H5T_NATIVE_UINT64;
	case SNAP_FLOAT32: return H5T_NATIVE_FLOAT;
	case SNAP_FLOAT64: return H5T_NATIVE_DOUBLE;
	}
	return -1;
}

// snap_classify maps a file datatype onto the widest matching Go type.
static int snap_classify(hid_t type) {
	H5T_class_t cls = H5Tget_class(type);
	size_t size = H5Tget_size(type);
	if (cls == H5T_INTEGER) {
		int sign = H5Tget_sign(type) == H5T_SGN_2;
		if (size <= 4) return sign ? SNAP_INT32 : SNAP_UINT32;
		if (size <= 8) return sign ? SNAP_INT64 : SNAP_UINT64;
	} else if (cls == H5T_FLOAT) {
		if (size <= 4) return SNAP_FLOAT32;
		if (size <= 8) return SNAP_FLOAT64;
	} else if (cls == H5T_STRING) {
		return SNAP_STRING;
	}
	return SNAP_UNSUPPORTED;
}

// snap_exists checks every component of an absolute path so that missing
// intermediate groups are not an error. The last component may be a
// dangling soft link.
static int snap_exists(hid_t loc, const char *path) {
	size_t n = strlen(path);
	char *buf = malloc(n + 1);
	if (buf == NULL) return 0;
	memcpy(buf, path, n + 1);
	int result = 1;
	for (size_t i = 1; i <= n && result; i++) {
		char c = buf[i];
		if (c != '/' && c != '\0') continue;
		buf[i] = '\0';
		if (H5Lexists(loc, buf, H5P_DEFAULT) <= 0) {
			result = 0;
		} else if (c != '\0' && H5Oexists_by_name(loc, buf, H5P_DEFAULT) <= 0) {
			result = 0;
		}
		buf[i] = c;
	}
	free(buf);
	return result;
}

// snap_is_soft returns 1 for soft links, 0 for hard links and negative
// on failure.
static int snap_is_soft(hid_t loc, const char *path) {
	H5L_info_t info;
	if (H5Lget_info(loc, path, &info, H5P_DEFAULT) < 0) return -1;
	return info.type == H5L_TYPE_SOFT;
}

static herr_t snap_soft_link(hid_t loc, const char *target, const char *name) {
	return H5Lcreate_soft(target, loc, name, H5P_DEFAULT, H5P_DEFAULT);
}

static herr_t snap_copy_object(hid_t src, const char *src_name, hid_t dst, const char *dst_name) {
	return H5Ocopy(src, src_name, dst, dst_name, H5P_DEFAULT, H5P_DEFAULT);
}

typedef struct {
	int type;
	int rank;
	hsize_t dims[2];
	int chunked;
	hsize_t chunk[2];
	int virtual_;
	int nfilters;
	int gzip;
	int shuffle;
} snap_layout;

static herr_t snap_get_layout(hid_t loc, const char *path, snap_layout *out, char *filters, size_t flen) {
	memset(out, 0, sizeof(*out));
	hid_t dset = H5Dopen2(loc, path, H5P_DEFAULT);
	if (dset < 0) return -1;

	hid_t type = H5Dget_type(dset);
	out->type = snap_classify(type);
	H5Tclose(type);

	hid_t space = H5Dget_space(dset);
	out->rank = H5Sget_simple_extent_ndims(space);
	if (out->rank > 2 || out->rank < 1) {
		H5Sclose(space);
		H5Dclose(dset);
		return -2;
	}
	H5Sget_simple_extent_dims(space, out->dims, NULL);
	H5Sclose(space);

	hid_t dcpl = H5Dget_create_plist(dset);
	H5D_layout_t layout = H5Pget_layout(dcpl);
	out->virtual_ = layout == H5D_VIRTUAL;
	if (layout == H5D_CHUNKED) {
		out->chunked = 1;
		H5Pget_chunk(dcpl, 2, out->chunk);
	}

	filters[0] = '\0';
	out->nfilters = H5Pget_nfilters(dcpl);
	for (int i = 0; i < out->nfilters; i++) {
		unsigned flags, cd[8];
		size_t ncd = 8;
		char name[64];
		unsigned conf;
		H5Z_filter_t id = H5Pget_filter2(dcpl, i, &flags, &ncd, cd, sizeof(name), name, &conf);
		if (id == H5Z_FILTER_DEFLATE && ncd > 0) out->gzip = cd[0];
		if (id == H5Z_FILTER_SHUFFLE) out->shuffle = 1;
		if (i > 0) strncat(filters, ",", flen - strlen(filters) - 1);
		strncat(filters, name, flen - strlen(filters) - 1);
	}

	H5Pclose(dcpl);
	H5Dclose(dset);
	return 0;
}

static herr_t snap_create_dataset(hid_t loc, const char *path, int type, int rank,
		hsize_t *dims, int chunked, hsize_t *chunk, int gzip, int shuffle) {
	hid_t dcpl = H5Pcreate(H5P_DATASET_CREATE);
	if (chunked) {
		H5Pset_chunk(dcpl, rank, chunk);
		if (shuffle) H5Pset_shuffle(dcpl);
		if (gzip > 0) H5Pset_deflate(dcpl, gzip);
	}
	hid_t space = H5Screate_simple(rank, dims, NULL);
	hid_t dset = H5Dcreate2(loc, path, snap_native(type), space, H5P_DEFAULT, dcpl, H5P_DEFAULT);
	H5Sclose(space);
	H5Pclose(dcpl);
	if (dset < 0) return -1;
	return H5Dclose(dset);
}

// snap_create_like creates a dataset with the datatype and creation
// properties of src and rows rows. Chunks are clamped to the new extent,
// and empty datasets are contiguous and unfiltered.
static herr_t snap_create_like(hid_t src_loc, const char *src_path,
		hid_t dst_loc, const char *dst_path, hsize_t rows) {
	hid_t src = H5Dopen2(src_loc, src_path, H5P_DEFAULT);
	if (src < 0) return -1;

	hid_t space = H5Dget_space(src);
	int rank = H5Sget_simple_extent_ndims(space);
	hsize_t dims[2] = {0, 0};
	if (rank < 1 || rank > 2) {
		H5Sclose(space);
		H5Dclose(src);
		return -2;
	}
	H5Sget_simple_extent_dims(space, dims, NULL);
	H5Sclose(space);
	dims[0] = rows;

	hid_t orig = H5Dget_create_plist(src);
	hid_t dcpl = H5Pcopy(orig);
	H5Pclose(orig);
	if (H5Pget_layout(dcpl) == H5D_VIRTUAL) {
		H5Pclose(dcpl);
		H5Dclose(src);
		return -3;
	}
	if (rows == 0) {
		H5Premove_filter(dcpl, H5Z_FILTER_ALL);
		H5Pset_layout(dcpl, H5D_CONTIGUOUS);
	} else if (H5Pget_layout(dcpl) == H5D_CHUNKED) {
		hsize_t chunk[2] = {0, 0};
		H5Pget_chunk(dcpl, rank, chunk);
		if (chunk[0] > rows) chunk[0] = rows;
		H5Pset_chunk(dcpl, rank, chunk);
	}

	hid_t type = H5Dget_type(src);
	space = H5Screate_simple(rank, dims, NULL);
	hid_t dst = H5Dcreate2(dst_loc, dst_path, type, space, H5P_DEFAULT, dcpl, H5P_DEFAULT);
	H5Sclose(space);
	H5Tclose(type);
	H5Pclose(dcpl);
	H5Dclose(src);
	if (dst < 0) return -1;
	return H5Dclose(dst);
}

static herr_t snap_write_rows(hid_t loc, const char *path, int type, int rank,
		hsize_t start, hsize_t *count, const void *buf) {
	hid_t dset = H5Dopen2(loc, path, H5P_DEFAULT);
	if (dset < 0) return -1;
	hid_t fspace = H5Dget_space(dset);
	hsize_t offset[2] = {start, 0};
	herr_t err = H5Sselect_hyperslab(fspace, H5S_SELECT_SET, offset, NULL, count, NULL);
	hid_t mspace = H5Screate_simple(rank, count, NULL);
	if (err >= 0) err = H5Dwrite(dset, snap_native(type), mspace, fspace, H5P_DEFAULT, buf);
	H5Sclose(mspace);
	H5Sclose(fspace);
	H5Dclose(dset);
	return err;
}

static int snap_virtual_count(hid_t loc, const char *path) {
	hid_t dset = H5Dopen2(loc, path, H5P_DEFAULT);
	if (dset < 0) return -1;
	hid_t dcpl = H5Dget_create_plist(dset);
	size_t n = 0;
	int result = H5Pget_virtual_count(dcpl, &n) < 0 ? -1 : (int)n;
	H5Pclose(dcpl);
	H5Dclose(dset);
	return result;
}

// snap_virtual_source writes the file and dataset names of mapping i and
// returns the number of rows it selects.
static long long snap_virtual_source(hid_t loc, const char *path, size_t i,
		char *file, size_t flen, char *name, size_t nlen) {
	hid_t dset = H5Dopen2(loc, path, H5P_DEFAULT);
	if (dset < 0) return -1;
	hid_t dcpl = H5Dget_create_plist(dset);
	long long rows = -1;
	if (H5Pget_virtual_filename(dcpl, i, file, flen) >= 0 &&
			H5Pget_virtual_dsetname(dcpl, i, name, nlen) >= 0) {
		hid_t vspace = H5Pget_virtual_vspace(dcpl, i);
		hsize_t start[2], end[2];
		if (vspace >= 0 && H5Sget_select_bounds(vspace, start, end) >= 0) {
			rows = (long long)(end[0] - start[0] + 1);
		}
		if (vspace >= 0) H5Sclose(vspace);
	}
	H5Pclose(dcpl);
	H5Dclose(dset);
	return rows;
}

static herr_t snap_create_virtual(hid_t loc, const char *path, int type,
		int rank, hsize_t *dims, int n, char **files, char **names, hsize_t *rows) {
	hid_t dcpl = H5Pcreate(H5P_DATASET_CREATE);
	hid_t vspace = H5Screate_simple(rank, dims, NULL);
	hsize_t start[2] = {0, 0};
	herr_t err = 0;
	for (int i = 0; i < n && err >= 0; i++) {
		if (rows[i] == 0) continue;
		hsize_t count[2] = {rows[i], rank > 1 ? dims[1] : 1};
		hid_t sspace = H5Screate_simple(rank, count, NULL);
		err = H5Sselect_hyperslab(vspace, H5S_SELECT_SET, start, NULL, count, NULL);
		if (err >= 0) err = H5Pset_virtual(dcpl, vspace, files[i], names[i], sspace);
		H5Sclose(sspace);
		start[0] += rows[i];
	}
	hid_t dset = -1;
	if (err >= 0) {
		H5Sselect_all(vspace);
		dset = H5Dcreate2(loc, path, snap_native(type), vspace, H5P_DEFAULT, dcpl, H5P_DEFAULT);
	}
	H5Sclose(vspace);
	H5Pclose(dcpl);
	if (dset < 0) return -1;
	return H5Dclose(dset);
}

static long long snap_storage_size(hid_t loc, const char *path) {
	hid_t dset = H5Dopen2(loc, path, H5P_DEFAULT);
	if (dset < 0) return -1;
	long long size = (long long)H5Dget_storage_size(dset);
	H5Dclose(dset);
	return size;
}

// Attributes.

static herr_t snap_count_attr(hid_t loc, const char *name, const H5A_info_t *info, void *data) {
	(*(int *)data)++;
	return 0;
}

static int snap_attr_count(hid_t loc, const char *path) {
	hid_t obj = H5Oopen(loc, path, H5P_DEFAULT);
	if (obj < 0) return -1;
	int n = 0;
	hsize_t idx = 0;
	herr_t err = H5Aiterate2(obj, H5_INDEX_NAME, H5_ITER_INC, &idx, snap_count_attr, &n);
	H5Oclose(obj);
	return err < 0 ? -1 : n;
}

static long snap_attr_name(hid_t loc, const char *path, hsize_t i, char *buf, size_t n) {
	return (long)H5Aget_name_by_idx(loc, path, H5_INDEX_NAME, H5_ITER_INC, i, buf, n, H5P_DEFAULT);
}

// snap_attr_info returns the classified type of an attribute and its
// number of elements, or a negative value if it doesn't exist.
static int snap_attr_info(hid_t loc, const char *path, const char *name, hsize_t *n) {
	if (H5Aexists_by_name(loc, path, name, H5P_DEFAULT) <= 0) return -1;
	hid_t attr = H5Aopen_by_name(loc, path, name, H5P_DEFAULT, H5P_DEFAULT);
	if (attr < 0) return -1;
	hid_t type = H5Aget_type(attr);
	int t = snap_classify(type);
	H5Tclose(type);
	hid_t space = H5Aget_space(attr);
	hssize_t npoints = H5Sget_simple_extent_npoints(space);
	*n = npoints < 0 ? 0 : (hsize_t)npoints;
	H5Sclose(space);
	H5Aclose(attr);
	return t;
}

static herr_t snap_read_attr(hid_t loc, const char *path, const char *name, int type, void *buf) {
	hid_t attr = H5Aopen_by_name(loc, path, name, H5P_DEFAULT, H5P_DEFAULT);
	if (attr < 0) return -1;
	herr_t err = H5Aread(attr, snap_native(type), buf);
	H5Aclose(attr);
	return err;
}

static herr_t snap_write_attr(hid_t loc, const char *path, const char *name,
		int type, hsize_t n, const void *buf) {
	hid_t obj = H5Oopen(loc, path, H5P_DEFAULT);
	if (obj < 0) return -1;
	if (H5Aexists(obj, name) > 0) H5Adelete(obj, name);
	hid_t space = H5Screate_simple(1, &n, NULL);
	hid_t attr = H5Acreate2(obj, name, snap_native(type), space, H5P_DEFAULT, H5P_DEFAULT);
	herr_t err = attr < 0 ? -1 : H5Awrite(attr, snap_native(type), buf);
	if (attr >= 0) H5Aclose(attr);
	H5Sclose(space);
	H5Oclose(obj);
	return err;
}

// snap_write_str_attr writes n fixed-length, null-padded strings of the
// given width.
static herr_t snap_write_str_attr(hid_t loc, const char *path, const char *name,
		const char *buf, size_t width, hsize_t n) {
	hid_t obj = H5Oopen(loc, path, H5P_DEFAULT);
	if (obj < 0) return -1;
	if (H5Aexists(obj, name) > 0) H5Adelete(obj, name);
	hid_t type = H5Tcopy(H5T_C_S1);
	H5Tset_size(type, width > 0 ? width : 1);
	H5Tset_strpad(type, H5T_STR_NULLPAD);
	hid_t space = H5Screate_simple(1, &n, NULL);
	hid_t attr = H5Acreate2(obj, name, type, space, H5P_DEFAULT, H5P_DEFAULT);
	herr_t err = attr < 0 ? -1 : (n == 0 ? 0 : H5Awrite(attr, type, buf));
	if (attr >= 0) H5Aclose(attr);
	H5Sclose(space);
	H5Tclose(type);
	H5Oclose(obj);
	return err;
}

// snap_read_str_attr reads a string attribute, fixed or variable length,
// into a malloc'd buffer of n fixed-width strings.
static herr_t snap_read_str_attr(hid_t loc, const char *path, const char *name,
		char **out, size_t *width, hsize_t *n) {
	hid_t attr = H5Aopen_by_name(loc, path, name, H5P_DEFAULT, H5P_DEFAULT);
	if (attr < 0) return -1;
	hid_t type = H5Aget_type(attr);
	hid_t space = H5Aget_space(attr);
	hssize_t npoints = H5Sget_simple_extent_npoints(space);
	*n = npoints < 0 ? 0 : (hsize_t)npoints;
	herr_t err = 0;

	if (H5Tis_variable_str(type) > 0) {
		hid_t mem = H5Tcopy(H5T_C_S1);
		H5Tset_size(mem, H5T_VARIABLE);
		char **strs = calloc(*n > 0 ? *n : 1, sizeof(char *));
		err = H5Aread(attr, mem, strs);
		size_t w = 1;
		for (hsize_t i = 0; err >= 0 && i < *n; i++) {
			size_t len = strs[i] == NULL ? 0 : strlen(strs[i]);
			if (len > w) w = len;
		}
		*width = w;
		*out = calloc(*n > 0 ? *n : 1, w);
		for (hsize_t i = 0; err >= 0 && i < *n; i++) {
			if (strs[i] != NULL) memcpy(*out + i * w, strs[i], strlen(strs[i]));
		}
		if (err >= 0) H5Dvlen_reclaim(mem, space, H5P_DEFAULT, strs);
		free(strs);
		H5Tclose(mem);
	} else {
		*width = H5Tget_size(type);
		*out = calloc(*n > 0 ? *n : 1, *width > 0 ? *width : 1);
		if (*n > 0) err = H5Aread(attr, type, *out);
	}

	H5Sclose(space);
	H5Tclose(type);
	H5Aclose(attr);
	return err;
}

typedef struct {
	hid_t dst;
	herr_t err;
} snap_copy_ctx;

// snap_copy_attr copies one attribute byte for byte in its file datatype.
static herr_t snap_copy_attr(hid_t src, const char *name, const H5A_info_t *info, void *data) {
	snap_copy_ctx *ctx = (snap_copy_ctx *)data;
	hid_t attr = H5Aopen(src, name, H5P_DEFAULT);
	if (attr < 0) { ctx->err = -1; return -1; }
	hid_t type = H5Aget_type(attr);
	hid_t space = H5Aget_space(attr);
	hssize_t npoints = H5Sget_simple_extent_npoints(space);
	size_t size = H5Tget_size(type) * (size_t)(npoints > 0 ? npoints : 1);
	void *buf = calloc(1, size > 0 ? size : 1);
	herr_t err = buf == NULL ? -1 : H5Aread(attr, type, buf);

	if (err >= 0) {
		if (H5Aexists(ctx->dst, name) > 0) H5Adelete(ctx->dst, name);
		hid_t out = H5Acreate2(ctx->dst, name, type, space, H5P_DEFAULT, H5P_DEFAULT);
		err = out < 0 ? -1 : H5Awrite(out, type, buf);
		if (out >= 0) H5Aclose(out);
		if (H5Tdetect_class(type, H5T_VLEN) > 0 || H5Tis_variable_str(type) > 0) {
			H5Dvlen_reclaim(type, space, H5P_DEFAULT, buf);
		}
	}

	free(buf);
	H5Sclose(space);
	H5Tclose(type);
	H5Aclose(attr);
	if (err < 0) { ctx->err = err; return -1; }
	return 0;
}

static herr_t snap_copy_attrs(hid_t src_loc, const char *src_path, hid_t dst_loc, const char *dst_path) {
	hid_t src = H5Oopen(src_loc, src_path, H5P_DEFAULT);
	if (src < 0) return -1;
	hid_t dst = H5Oopen(dst_loc, dst_path, H5P_DEFAULT);
	if (dst < 0) { H5Oclose(src); return -1; }
	snap_copy_ctx ctx = {dst, 0};
	hsize_t idx = 0;
	herr_t err = H5Aiterate2(src, H5_INDEX_NAME, H5_ITER_INC, &idx, snap_copy_attr, &ctx);
	H5Oclose(dst);
	H5Oclose(src);
	return err < 0 || ctx.err < 0 ? -1 : 0;
}
*/
import "C"

import (
	"strings"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/swift-toolbox/snaptools/snapshot"
)

func init() { C.snap_silence() }

func cType(t snapshot.DType) C.int {
	switch t {
	case snapshot.Int32: return C.SNAP_INT32
	case snapshot.Uint32: return C.SNAP_UINT32
	case snapshot.Int64: return C.SNAP_INT64
	case snapshot.Uint64: return C.SNAP_UINT64
	case snapshot.Float32: return C.SNAP_FLOAT32
	case snapshot.Float64: return C.SNAP_FLOAT64
	case snapshot.String: return C.SNAP_STRING
	}
	return C.SNAP_UNSUPPORTED
}

func goType(t C.int) (snapshot.DType, error) {
	switch t {
	case C.SNAP_INT32: return snapshot.Int32, nil
	case C.SNAP_UINT32: return snapshot.Uint32, nil
	case C.SNAP_INT64: return snapshot.Int64, nil
	case C.SNAP_UINT64: return snapshot.Uint64, nil
	case C.SNAP_FLOAT32: return snapshot.Float32, nil
	case C.SNAP_FLOAT64: return snapshot.Float64, nil
	case C.SNAP_STRING: return snapshot.String, nil
	}
	return 0, snapshot.ErrUnsupportedType
}

// dataPointer returns the address of the first element of a numeric Array,
// or nil if it is empty.
func dataPointer(a snapshot.Array) unsafe.Pointer {
	switch d := a.Data.(type) {
	case []int32:
		if len(d) > 0 { return unsafe.Pointer(&d[0]) }
	case []uint32:
		if len(d) > 0 { return unsafe.Pointer(&d[0]) }
	case []int64:
		if len(d) > 0 { return unsafe.Pointer(&d[0]) }
	case []uint64:
		if len(d) > 0 { return unsafe.Pointer(&d[0]) }
	case []float32:
		if len(d) > 0 { return unsafe.Pointer(&d[0]) }
	case []float64:
		if len(d) > 0 { return unsafe.Pointer(&d[0]) }
	}
	return nil
}

func herr(code C.herr_t, format string, args ...interface{}) error {
	if code >= 0 { return nil }
	return errors.Errorf(format, args...)
}

func hid(id int64) C.hid_t { return C.hid_t(id) }

func exists(loc int64, path string) bool {
	if snapshot.Clean(path) == "/" { return true }
	cpath := C.CString(snapshot.Clean(path))
	defer C.free(unsafe.Pointer(cpath))
	return C.snap_exists(hid(loc), cpath) > 0
}

func isSoft(loc int64, path string) (bool, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	switch C.snap_is_soft(hid(loc), cpath) {
	case 1: return true, nil
	case 0: return false, nil
	}
	return false, errors.Wrapf(snapshot.ErrNotFound, "link %s", path)
}

func softLink(loc int64, target, name string) error {
	ctarget, cname := C.CString(target), C.CString(name)
	defer C.free(unsafe.Pointer(ctarget))
	defer C.free(unsafe.Pointer(cname))
	return herr(C.snap_soft_link(hid(loc), ctarget, cname),
		"H5Lcreate_soft failed for %s -> %s", name, target)
}

func copyObject(src int64, srcPath string, dst int64, dstPath string) error {
	csrc, cdst := C.CString(srcPath), C.CString(dstPath)
	defer C.free(unsafe.Pointer(csrc))
	defer C.free(unsafe.Pointer(cdst))
	return herr(C.snap_copy_object(hid(src), csrc, hid(dst), cdst),
		"H5Ocopy failed for %s", srcPath)
}

func getLayout(loc int64, path string) (snapshot.Layout, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	var out C.snap_layout
	filters := make([]byte, 256)
	code := C.snap_get_layout(hid(loc), cpath, &out,
		(*C.char)(unsafe.Pointer(&filters[0])), C.size_t(len(filters)))
	switch {
	case code == -2:
		return snapshot.Layout{}, errors.Wrapf(snapshot.ErrShape,
			"%s doesn't have rank 1 or 2", path)
	case code < 0:
		return snapshot.Layout{}, errors.Wrapf(snapshot.ErrNotDataset, "%s", path)
	}

	t, err := goType(out._type)
	if err != nil || t == snapshot.String {
		return snapshot.Layout{}, errors.Wrapf(snapshot.ErrUnsupportedType,
			"the element type of %s", path)
	}

	l := snapshot.Layout{
		Type:    t,
		Virtual: out.virtual_ != 0,
		Gzip:    int(out.gzip),
		Shuffle: out.shuffle != 0,
	}
	for i := 0; i < int(out.rank); i++ { l.Shape = append(l.Shape, int(out.dims[i])) }
	if out.chunked != 0 {
		for i := 0; i < int(out.rank); i++ { l.Chunk = append(l.Chunk, int(out.chunk[i])) }
	}
	if names := C.GoString((*C.char)(unsafe.Pointer(&filters[0]))); names != "" {
		l.Filters = strings.Split(names, ",")
	}
	return l, nil
}

func dims(shape []int) [2]C.hsize_t {
	var out [2]C.hsize_t
	for i := range shape {
		if i < 2 { out[i] = C.hsize_t(shape[i]) }
	}
	return out
}

func createDataset(loc int64, path string, l snapshot.Layout) error {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	d, chunk := dims(l.Shape), dims(l.Chunk)
	chunked, shuffle := C.int(0), C.int(0)
	if l.Chunk != nil { chunked = 1 }
	if l.Shuffle { shuffle = 1 }
	return herr(C.snap_create_dataset(hid(loc), cpath, cType(l.Type),
		C.int(len(l.Shape)), &d[0], chunked, &chunk[0], C.int(l.Gzip), shuffle),
		"H5Dcreate2 failed for %s%v", path, l.Shape)
}

func createLike(src int64, srcPath string, dst int64, dstPath string, rows int) error {
	csrc, cdst := C.CString(srcPath), C.CString(dstPath)
	defer C.free(unsafe.Pointer(csrc))
	defer C.free(unsafe.Pointer(cdst))
	switch C.snap_create_like(hid(src), csrc, hid(dst), cdst, C.hsize_t(rows)) {
	case 0:
		return nil
	case -2:
		return errors.Wrapf(snapshot.ErrShape, "%s doesn't have rank 1 or 2", srcPath)
	case -3:
		return errors.Errorf("%s is virtual and has no creation properties to copy", srcPath)
	}
	return errors.Errorf("I couldn't create %s like %s", dstPath, srcPath)
}

func writeRows(loc int64, path string, start int, a snapshot.Array) error {
	if a.Rows() == 0 { return nil }
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	count := dims(a.Shape)
	return herr(C.snap_write_rows(hid(loc), cpath, cType(a.Type), C.int(len(a.Shape)),
		C.hsize_t(start), &count[0], dataPointer(a)),
		"H5Dwrite failed for rows [%d, %d) of %s", start, start+a.Rows(), path)
}

func virtualSources(loc int64, path string) ([]snapshot.Source, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	n := int(C.snap_virtual_count(hid(loc), cpath))
	if n < 0 {
		return nil, errors.Errorf("I couldn't read the virtual mappings of %s", path)
	}

	file, name := make([]byte, 4096), make([]byte, 4096)
	out := make([]snapshot.Source, 0, n)
	for i := 0; i < n; i++ {
		rows := C.snap_virtual_source(hid(loc), cpath, C.size_t(i),
			(*C.char)(unsafe.Pointer(&file[0])), C.size_t(len(file)),
			(*C.char)(unsafe.Pointer(&name[0])), C.size_t(len(name)))
		if rows < 0 {
			return nil, errors.Errorf("I couldn't read mapping %d of %s", i, path)
		}
		out = append(out, snapshot.Source{
			File:    C.GoString((*C.char)(unsafe.Pointer(&file[0]))),
			Dataset: C.GoString((*C.char)(unsafe.Pointer(&name[0]))),
			Rows:    int(rows),
		})
	}
	return out, nil
}

func createVirtual(loc int64, path string, l snapshot.Layout, sources []snapshot.Source) error {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	n := len(sources)
	ptrSize := C.size_t(unsafe.Sizeof((*C.char)(nil)))
	files := (**C.char)(C.malloc(ptrSize * C.size_t(n+1)))
	names := (**C.char)(C.malloc(ptrSize * C.size_t(n+1)))
	rows := (*C.hsize_t)(C.malloc(C.size_t(unsafe.Sizeof(C.hsize_t(0))) * C.size_t(n+1)))
	defer C.free(unsafe.Pointer(files))
	defer C.free(unsafe.Pointer(names))
	defer C.free(unsafe.Pointer(rows))

	fileSlice := unsafe.Slice(files, n+1)
	nameSlice := unsafe.Slice(names, n+1)
	rowSlice := unsafe.Slice(rows, n+1)
	for i, src := range sources {
		fileSlice[i] = C.CString(src.File)
		nameSlice[i] = C.CString(src.Dataset)
		rowSlice[i] = C.hsize_t(src.Rows)
	}
	defer func() {
		for i := 0; i < n; i++ {
			C.free(unsafe.Pointer(fileSlice[i]))
			C.free(unsafe.Pointer(nameSlice[i]))
		}
	}()

	d := dims(l.Shape)
	return herr(C.snap_create_virtual(hid(loc), cpath, cType(l.Type),
		C.int(len(l.Shape)), &d[0], C.int(n), files, names, rows),
		"I couldn't create the virtual dataset %s", path)
}

func storageSize(loc int64, path string) (int64, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	size := int64(C.snap_storage_size(hid(loc), cpath))
	if size < 0 {
		return 0, errors.Wrapf(snapshot.ErrNotDataset, "%s", path)
	}
	return size, nil
}

func attrNames(loc int64, path string) ([]string, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	n := int(C.snap_attr_count(hid(loc), cpath))
	if n < 0 {
		return nil, errors.Wrapf(snapshot.ErrNotFound, "%s", path)
	}

	buf := make([]byte, 1024)
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		size := C.snap_attr_name(hid(loc), cpath, C.hsize_t(i),
			(*C.char)(unsafe.Pointer(&buf[0])), C.size_t(len(buf)))
		if size < 0 {
			return nil, errors.Errorf("I couldn't read attribute %d of %s", i, path)
		}
		out = append(out, C.GoString((*C.char)(unsafe.Pointer(&buf[0]))))
	}
	return out, nil
}

func readAttr(loc int64, path, name string) (snapshot.Array, error) {
	cpath, cname := C.CString(path), C.CString(name)
	defer C.free(unsafe.Pointer(cpath))
	defer C.free(unsafe.Pointer(cname))

	var n C.hsize_t
	code := C.snap_attr_info(hid(loc), cpath, cname, &n)
	if code < 0 {
		return snapshot.Array{}, errors.Wrapf(snapshot.ErrNotFound,
			"attribute %s of %s", name, path)
	}
	t, err := goType(code)
	if err != nil {
		return snapshot.Array{}, errors.Wrapf(snapshot.ErrUnsupportedType,
			"attribute %s of %s", name, path)
	} else if t == snapshot.String {
		return readStrAttr(cpath, cname, loc, path, name)
	}

	a := snapshot.Zeros(t, int(n))
	if n > 0 {
		err := herr(C.snap_read_attr(hid(loc), cpath, cname, cType(t), dataPointer(a)),
			"H5Aread failed for %s of %s", name, path)
		if err != nil { return snapshot.Array{}, err }
	}
	return a, nil
}

func writeAttr(loc int64, path, name string, a snapshot.Array) error {
	cpath, cname := C.CString(path), C.CString(name)
	defer C.free(unsafe.Pointer(cpath))
	defer C.free(unsafe.Pointer(cname))
	if a.Type == snapshot.String { return writeStrAttr(loc, cpath, cname, path, name, a) }
	return herr(C.snap_write_attr(hid(loc), cpath, cname, cType(a.Type),
		C.hsize_t(a.Len()), dataPointer(a)),
		"I couldn't write attribute %s of %s", name, path)
}

func copyAttrs(src int64, srcPath string, dst int64, dstPath string) error {
	csrc, cdst := C.CString(srcPath), C.CString(dstPath)
	defer C.free(unsafe.Pointer(csrc))
	defer C.free(unsafe.Pointer(cdst))
	return herr(C.snap_copy_attrs(hid(src), csrc, hid(dst), cdst),
		"I couldn't copy the attributes of %s", srcPath)
}

func readStrAttr(cpath, cname *C.char, loc int64, path, name string) (snapshot.Array, error) {
	var (
		buf   *C.char
		width C.size_t
		n     C.hsize_t
	)
	code := C.snap_read_str_attr(hid(loc), cpath, cname, &buf, &width, &n)
	if buf != nil { defer C.free(unsafe.Pointer(buf)) }
	if code < 0 {
		return snapshot.Array{}, errors.Errorf("H5Aread failed for %s of %s", name, path)
	}

	raw := C.GoBytes(unsafe.Pointer(buf), C.int(int(width)*int(n)))
	strs := make([]string, int(n))
	for i := range strs {
		s := raw[i*int(width) : (i+1)*int(width)]
		strs[i] = strings.TrimRight(string(s), "\x00 ")
	}
	return snapshot.Strings(strs...), nil
}

func writeStrAttr(loc int64, cpath, cname *C.char, path, name string, a snapshot.Array) error {
	strs := a.Data.([]string)
	width := 1
	for _, s := range strs {
		if len(s) > width { width = len(s) }
	}
	buf := make([]byte, width*len(strs))
	for i, s := range strs { copy(buf[i*width:], s) }

	var ptr *C.char
	if len(buf) > 0 { ptr = (*C.char)(unsafe.Pointer(&buf[0])) }
	return herr(C.snap_write_str_attr(hid(loc), cpath, cname, ptr,
		C.size_t(width), C.hsize_t(len(strs))),
		"I couldn't write attribute %s of %s", name, path)
}
