package gpu

// WGSL sources for the flood-fill stages. All three stages share the same
// Params uniform layout and a 256-wide 1D workgroup; the step shader is
// dispatched once per halving step over a ping-ponged pair of seed buffers.
//
// Seed buffers hold the flat pixel index of the best seed found so far, or
// invalidSeed for "none". Pixels are packed RGBA8, red in the low byte.

const floodParamsWGSL = `
struct Params {
    width: u32,
    height: u32,
    step: u32,
    seed_threshold: u32,
    fill_threshold: u32,
    darken: u32,
    dark_threshold: u32,
    _pad: u32,
}
`

const floodInitWGSL = floodParamsWGSL + `
@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read> pixels: array<u32>;
@group(0) @binding(2) var<storage, read_write> seeds: array<u32>;

const INVALID_SEED: u32 = 0xffffffffu;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x;
    if (i >= params.width * params.height) {
        return;
    }
    let alpha = (pixels[i] >> 24u) & 0xffu;
    if (alpha >= params.seed_threshold) {
        seeds[i] = i;
    } else {
        seeds[i] = INVALID_SEED;
    }
}
`

const floodStepWGSL = floodParamsWGSL + `
@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read> seeds_in: array<u32>;
@group(0) @binding(2) var<storage, read_write> seeds_out: array<u32>;

const INVALID_SEED: u32 = 0xffffffffu;

fn consider(x: i32, y: i32, nx: i32, ny: i32,
            best: ptr<function, u32>, best_d: ptr<function, u32>) {
    if (nx < 0 || ny < 0 || nx >= i32(params.width) || ny >= i32(params.height)) {
        return;
    }
    let cand = seeds_in[u32(ny) * params.width + u32(nx)];
    if (cand == INVALID_SEED) {
        return;
    }
    let dx = i32(cand % params.width) - x;
    let dy = i32(cand / params.width) - y;
    let d = u32(dx * dx + dy * dy);
    if (d < *best_d) {
        *best_d = d;
        *best = cand;
    }
}

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x;
    if (i >= params.width * params.height) {
        return;
    }
    let x = i32(i % params.width);
    let y = i32(i / params.width);

    var best = seeds_in[i];
    var best_d: u32 = 0xffffffffu;
    if (best != INVALID_SEED) {
        let dx = i32(best % params.width) - x;
        let dy = i32(best / params.width) - y;
        best_d = u32(dx * dx + dy * dy);
    }

    // The 8-neighborhood at the current step distance, unrolled. Loops over
    // the offsets miscompile on some naga SPIR-V targets, so spell them out.
    let s = i32(params.step);
    consider(x, y, x - s, y - s, &best, &best_d);
    consider(x, y, x,     y - s, &best, &best_d);
    consider(x, y, x + s, y - s, &best, &best_d);
    consider(x, y, x - s, y,     &best, &best_d);
    consider(x, y, x + s, y,     &best, &best_d);
    consider(x, y, x - s, y + s, &best, &best_d);
    consider(x, y, x,     y + s, &best, &best_d);
    consider(x, y, x + s, y + s, &best, &best_d);

    seeds_out[i] = best;
}
`

const floodColorizeWGSL = floodParamsWGSL + `
@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read> seeds: array<u32>;
@group(0) @binding(2) var<storage, read_write> pixels: array<u32>;

const INVALID_SEED: u32 = 0xffffffffu;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x;
    if (i >= params.width * params.height) {
        return;
    }
    let alpha = (pixels[i] >> 24u) & 0xffu;
    if (alpha >= params.fill_threshold) {
        return;
    }
    let seed = seeds[i];
    if (seed == INVALID_SEED) {
        return;
    }
    let sp = pixels[seed];
    var r = sp & 0xffu;
    var g = (sp >> 8u) & 0xffu;
    var b = (sp >> 16u) & 0xffu;
    if (params.darken == 1u &&
        r <= params.dark_threshold &&
        g <= params.dark_threshold &&
        b <= params.dark_threshold) {
        r = r / 4u;
        g = g / 4u;
        b = b / 4u;
    }
    pixels[i] = r | (g << 8u) | (b << 16u) | 0xff000000u;
}
`
